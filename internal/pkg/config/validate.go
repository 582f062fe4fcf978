package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
)

const RemoteDomain = "remote"

var (
	ErrInvalidConfig = errors.New("invalid config")
	errNoHelpers     = errors.New("no helpers configured")
)

// Validate checks the parts of the config the bridge cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.HomeAssistant.URL == "" {
		errs = append(errs, errors.New("home_assistant.url is required"))
	}
	if c.HomeAssistant.Token == "" {
		errs = append(errs, errors.New("home_assistant.token is required"))
	}
	if c.Database.Enabled() {
		if _, err := cron.ParseStandard(c.Database.CleanupSchedule); err != nil {
			errs = append(errs, fmt.Errorf("database.cleanup_schedule: %w", err))
		}
	}
	if c.Influx.Enabled() && (c.Influx.Org == "" || c.Influx.Bucket == "") {
		errs = append(errs, errors.New("influxdb.org and influxdb.bucket are required"))
	}
	if len(c.Helpers) == 0 {
		errs = append(errs, errNoHelpers)
	}
	errs = append(errs, c.validateObjectIDs()...)
	for name, helper := range c.Helpers {
		if !IsSlug(name) {
			errs = append(errs, fmt.Errorf("helper %q: name must be a slug", name))
		}
		if err := helper.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("helper %q: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// validateObjectIDs rejects commands whose "<helper>_<command>" ids slugify to the same object id.
// Repeating the exact same command is allowed, the later one overwrites.
func (c *Config) validateObjectIDs() []error {
	var errs []error
	names := lo.Keys(c.Helpers)
	slices.Sort(names)
	owners := make(map[string]string)
	for _, name := range names {
		for _, cmd := range c.Helpers[name].Commands {
			if cmd.Command == "" {
				continue
			}
			uniqueID := name + "_" + cmd.Command
			objectID := Slugify(uniqueID)
			if owner, ok := owners[objectID]; ok && owner != uniqueID {
				errs = append(errs, fmt.Errorf("%q and %q share object id %q", owner, uniqueID, objectID))
				continue
			}
			owners[objectID] = uniqueID
		}
	}
	return errs
}

func (h HelperConfig) Validate() error {
	var errs []error
	if !IsEntityInDomain(h.Source, RemoteDomain) {
		errs = append(errs, fmt.Errorf("source %q is not a %s entity", h.Source, RemoteDomain))
	}
	seen := make(map[string]struct{}, len(h.ActivityDeviceLinks))
	for _, link := range h.ActivityDeviceLinks {
		if _, ok := seen[link.Name]; ok {
			errs = append(errs, fmt.Errorf("activity device link %q defined twice", link.Name))
		}
		seen[link.Name] = struct{}{}
		if link.Activity == "" {
			errs = append(errs, fmt.Errorf("activity device link %q: activity is required", link.Name))
		}
		if link.Device == "" {
			errs = append(errs, fmt.Errorf("activity device link %q: device is required", link.Name))
		}
	}
	if len(h.Commands) == 0 {
		errs = append(errs, errors.New("at least one command is required"))
	}
	for i, cmd := range h.Commands {
		if cmd.Command == "" {
			errs = append(errs, fmt.Errorf("command #%d: command is required", i+1))
		}
		for _, link := range cmd.Links {
			if link.Link == "" {
				errs = append(errs, fmt.Errorf("command %q: link name is required", cmd.Command))
			}
		}
	}
	return errors.Join(errs...)
}

// IsSlug reports whether s is lowercase letters, digits and single underscores.
func IsSlug(s string) bool {
	return s != "" && Slugify(s) == s
}

// Slugify turns s into an identifier usable in entity ids and MQTT topics.
func Slugify(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", "_")
}

// IsEntityInDomain reports whether entityID looks like "<domain>.<object_id>".
func IsEntityInDomain(entityID, domain string) bool {
	d, objectID, ok := strings.Cut(entityID, ".")
	return ok && d == domain && IsSlug(objectID)
}

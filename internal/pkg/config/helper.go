package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// HelperConfig describes one remote and the commands derived from its activities.
type HelperConfig struct {
	Source              string              `yaml:"source"`
	ActivityDeviceLinks ActivityDeviceLinks `yaml:"activity_device_links"`
	Commands            Commands            `yaml:"commands"`
}

// ActivityDeviceLinkConfig pairs a remote activity with the device that receives commands while it runs.
type ActivityDeviceLinkConfig struct {
	Name     string `yaml:"-"`
	Activity string `yaml:"activity"`
	Device   string `yaml:"device"`
}

// ActivityDeviceLinks keeps the document order of the activity_device_links mapping.
type ActivityDeviceLinks []ActivityDeviceLinkConfig

func (l *ActivityDeviceLinks) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: activity_device_links must be a mapping", value.Line)
	}
	links := make(ActivityDeviceLinks, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		link := ActivityDeviceLinkConfig{}
		if err := value.Content[i+1].Decode(&link); err != nil {
			return err
		}
		link.Name = value.Content[i].Value
		links = append(links, link)
	}
	*l = links
	return nil
}

// CommandConfig is either a bare command string or a mapping with overrides.
// A bare command is linked to every activity device link.
type CommandConfig struct {
	Command       string `yaml:"command"`
	Name          string `yaml:"name"`
	DeviceCommand string `yaml:"device_command"`
	Icon          string `yaml:"icon"`
	Links         Links  `yaml:"links"`
	Bare          bool   `yaml:"-"`
}

func (c *CommandConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*c = CommandConfig{Command: value.Value, Bare: true}
		return nil
	}
	type plain CommandConfig
	p := plain{}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = CommandConfig(p)
	return nil
}

// Commands accepts a single command as well as a list.
type Commands []CommandConfig

func (c *Commands) UnmarshalYAML(value *yaml.Node) error {
	return decodeOneOrMany(value, (*[]CommandConfig)(c))
}

// LinkConfig references an activity device link by name, optionally overriding what the command resolves to.
type LinkConfig struct {
	Link          string `yaml:"link"`
	Name          string `yaml:"name"`
	DeviceCommand string `yaml:"device_command"`
	Icon          string `yaml:"icon"`
}

func (l *LinkConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*l = LinkConfig{Link: value.Value}
		return nil
	}
	type plain LinkConfig
	p := plain{}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*l = LinkConfig(p)
	return nil
}

// Links accepts a single link as well as a list.
type Links []LinkConfig

func (l *Links) UnmarshalYAML(value *yaml.Node) error {
	return decodeOneOrMany(value, (*[]LinkConfig)(l))
}

func decodeOneOrMany[T any](value *yaml.Node, out *[]T) error {
	if value.Kind == yaml.SequenceNode {
		items := make([]T, 0, len(value.Content))
		if err := value.Decode(&items); err != nil {
			return err
		}
		*out = items
		return nil
	}
	var item T
	if err := value.Decode(&item); err != nil {
		return err
	}
	*out = []T{item}
	return nil
}

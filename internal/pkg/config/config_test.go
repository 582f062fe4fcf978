package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
log_level: debug
home_assistant:
  url: http://homeassistant.local:8123
  token: secret
mqtt:
  host: tcp://broker:1883
helpers:
  living_room:
    source: remote.living_room
    activity_device_links:
      tv:
        activity: Watch TV
        device: Samsung TV
      movie:
        activity: Watch Movie
        device: Denon AVR
    commands:
      - PowerToggle
      - command: VolumeUp
        name: Volume Up
        icon: mdi:plus
        links:
          - tv
          - link: movie
            device_command: MasterVolumeUp
      - command: Mute
        links: movie
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultDiscoveryPrefix, cfg.MqttCfg.DiscoveryPrefix)
	assert.Equal(t, DefaultBaseTopic, cfg.MqttCfg.BaseTopic)
	assert.Equal(t, DefaultHTTPAddr, cfg.HTTP.Addr)
	assert.Equal(t, DefaultCallTimeout, cfg.HomeAssistant.CallTimeout)
	assert.Equal(t, DefaultRetention, cfg.Database.Retention)
	assert.True(t, cfg.MqttCfg.Enabled())
	assert.False(t, cfg.Database.Enabled())

	helper, ok := cfg.Helpers["living_room"]
	require.True(t, ok)
	assert.Equal(t, "remote.living_room", helper.Source)

	require.Len(t, helper.ActivityDeviceLinks, 2)
	assert.Equal(t, ActivityDeviceLinkConfig{Name: "tv", Activity: "Watch TV", Device: "Samsung TV"}, helper.ActivityDeviceLinks[0])
	assert.Equal(t, ActivityDeviceLinkConfig{Name: "movie", Activity: "Watch Movie", Device: "Denon AVR"}, helper.ActivityDeviceLinks[1])

	require.Len(t, helper.Commands, 3)
	assert.Equal(t, CommandConfig{Command: "PowerToggle", Bare: true}, helper.Commands[0])

	volume := helper.Commands[1]
	assert.False(t, volume.Bare)
	assert.Equal(t, "VolumeUp", volume.Command)
	assert.Equal(t, "Volume Up", volume.Name)
	assert.Equal(t, "mdi:plus", volume.Icon)
	assert.Equal(t, Links{{Link: "tv"}, {Link: "movie", DeviceCommand: "MasterVolumeUp"}}, volume.Links)

	assert.Equal(t, Links{{Link: "movie"}}, helper.Commands[2].Links)
}

func TestParse_SingleCommand(t *testing.T) {
	cfg, err := Parse([]byte(`
home_assistant: {url: "http://ha:8123", token: t}
helpers:
  den:
    source: remote.den
    activity_device_links:
      tv: {activity: TV, device: Tv}
    commands: PowerOff
`))
	require.NoError(t, err)
	assert.Equal(t, Commands{{Command: "PowerOff", Bare: true}}, cfg.Helpers["den"].Commands)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("HA_TOKEN", "from-env")
	t.Setenv("MQTT_USER", "mqtt-user")
	t.Setenv("DATABASE_URL", "postgres://localhost/harmony")
	t.Setenv("DATABASE_RETENTION", "48h")
	t.Setenv("INFLUX_URL", "http://influx:8086")
	t.Setenv("INFLUX_ORG", "home")
	t.Setenv("INFLUX_BUCKET", "harmony")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.HomeAssistant.Token)
	assert.Equal(t, "mqtt-user", cfg.MqttCfg.Username)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 48*time.Hour, cfg.Database.Retention)
	assert.True(t, cfg.Influx.Enabled())
	assert.Equal(t, "harmony", cfg.Influx.Bucket)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing token": `
home_assistant: {url: "http://ha:8123"}
helpers:
  den: {source: remote.den, activity_device_links: {}, commands: [PowerOff]}
`,
		"source not a remote": `
home_assistant: {url: "http://ha:8123", token: t}
helpers:
  den: {source: media_player.den, activity_device_links: {}, commands: [PowerOff]}
`,
		"helper name not a slug": `
home_assistant: {url: "http://ha:8123", token: t}
helpers:
  Den Room: {source: remote.den, activity_device_links: {}, commands: [PowerOff]}
`,
		"link without device": `
home_assistant: {url: "http://ha:8123", token: t}
helpers:
  den:
    source: remote.den
    activity_device_links:
      tv: {activity: TV}
    commands: [PowerOff]
`,
		"command without name": `
home_assistant: {url: "http://ha:8123", token: t}
helpers:
  den:
    source: remote.den
    activity_device_links: {}
    commands:
      - name: nothing
`,
		"bad cleanup schedule": `
home_assistant: {url: "http://ha:8123", token: t}
database: {url: "postgres://db/harmony", cleanup_schedule: "every day"}
helpers:
  den: {source: remote.den, activity_device_links: {}, commands: [PowerOff]}
`,
		"influx without bucket": `
home_assistant: {url: "http://ha:8123", token: t}
influxdb: {url: "http://influx:8086", org: home}
helpers:
  den: {source: remote.den, activity_device_links: {}, commands: [PowerOff]}
`,
		"commands share an object id": `
home_assistant: {url: "http://ha:8123", token: t}
helpers:
  living_room:
    source: remote.living_room
    activity_device_links: {}
    commands: ["Play Pause", play_pause]
`,
		"object id shared across helpers": `
home_assistant: {url: "http://ha:8123", token: t}
helpers:
  living: {source: remote.living, activity_device_links: {}, commands: [room_mute]}
  living_room: {source: remote.living_room, activity_device_links: {}, commands: [mute]}
`,
		"no helpers": `
home_assistant: {url: "http://ha:8123", token: t}
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestParse_RepeatedCommandIsAllowed(t *testing.T) {
	_, err := Parse([]byte(`
home_assistant: {url: "http://ha:8123", token: t}
helpers:
  den: {source: remote.den, activity_device_links: {}, commands: [PowerOff, PowerOff]}
`))
	assert.NoError(t, err)
}

func TestParse_LinksMustBeMapping(t *testing.T) {
	_, err := Parse([]byte(`
home_assistant: {url: "http://ha:8123", token: t}
helpers:
  den:
    source: remote.den
    activity_device_links: [tv]
    commands: [PowerOff]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activity_device_links must be a mapping")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Helpers, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestIsEntityInDomain(t *testing.T) {
	assert.True(t, IsEntityInDomain("remote.living_room", RemoteDomain))
	assert.False(t, IsEntityInDomain("remote.", RemoteDomain))
	assert.False(t, IsEntityInDomain("remote", RemoteDomain))
	assert.False(t, IsEntityInDomain("light.living_room", RemoteDomain))
	assert.False(t, IsEntityInDomain("remote.Living Room", RemoteDomain))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "volume_up", Slugify("Volume Up"))
	assert.Equal(t, "living_room", Slugify("living_room"))
	assert.True(t, IsSlug("living_room"))
	assert.False(t, IsSlug("Living Room"))
	assert.False(t, IsSlug(""))
}

func TestLoad_SampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "config.sample.yaml"))
	require.NoError(t, err)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Influx.Enabled())
	assert.Len(t, cfg.Helpers["living_room"].Commands, 3)
}

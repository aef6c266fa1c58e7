package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DeviceProfile is one paired device in the devices file.
type DeviceProfile struct {
	Address  string `yaml:"address"`
	ClientID string `yaml:"client_id"`
	KeyPath  string `yaml:"key_path"`
	Insecure bool   `yaml:"insecure"`
}

// LoadDeviceProfiles reads the YAML devices file, a map of profile name
// to device settings:
//
//	default:
//	  address: https://192.168.1.101:8443
//	  client_id: deviceid.dat contents
//	  key_path: /home/user/.dpapp/privatekey.dat
//	  insecure: true
func LoadDeviceProfiles(path string) (map[string]DeviceProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read devices file: %w", err)
	}

	profiles := make(map[string]DeviceProfile)
	if err := yaml.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("parse devices file %s: %w", path, err)
	}
	return profiles, nil
}

// ResolveDevice returns the device settings to use: the selected profile
// from the devices file, with any DEVICE_* env overrides applied on top.
// A fully specified env override works without a devices file at all.
func (c *Config) ResolveDevice() (DeviceProfile, error) {
	profile := DeviceProfile{Insecure: c.DeviceInsecure}

	if c.DeviceAddress == "" || c.DeviceClientID == "" || c.DeviceKeyPath == "" {
		profiles, err := LoadDeviceProfiles(c.DevicesFile)
		if err != nil {
			return DeviceProfile{}, err
		}
		found, ok := profiles[c.Device]
		if !ok {
			return DeviceProfile{}, fmt.Errorf("device profile %q not found in %s", c.Device, c.DevicesFile)
		}
		profile = found
	}

	if c.DeviceAddress != "" {
		profile.Address = c.DeviceAddress
	}
	if c.DeviceClientID != "" {
		profile.ClientID = c.DeviceClientID
	}
	if c.DeviceKeyPath != "" {
		profile.KeyPath = c.DeviceKeyPath
	}

	if profile.Address == "" {
		return DeviceProfile{}, fmt.Errorf("device profile %q has no address", c.Device)
	}
	if profile.ClientID == "" || profile.KeyPath == "" {
		return DeviceProfile{}, fmt.Errorf("device profile %q is missing client_id or key_path", c.Device)
	}
	return profile, nil
}

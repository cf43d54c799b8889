package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Persistence backends for the override journal.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

type EngineConfig struct {
	Version int `yaml:"version"`
	Engine  struct {
		ID      string  `yaml:"id"`
		Name    string  `yaml:"name"`
		Edition Edition `yaml:"edition"`
	} `yaml:"engine"`
	Network struct {
		APIPort     int    `yaml:"api_port"`
		MQTTURL     string `yaml:"mqtt_url"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"network"`
	Scene struct {
		Dir           string `yaml:"dir"`
		ScriptsDir    string `yaml:"scripts_dir"`
		StartLocation string `yaml:"start_location"`
		StartScene    string `yaml:"start_scene"`
		Watch         bool   `yaml:"watch"`
	} `yaml:"scene"`
	Persistence struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		Slot    string `yaml:"slot"`
	} `yaml:"persistence"`
	Timing struct {
		FrameMS            int     `yaml:"frame_ms"`
		TriggerEffectiveMS int     `yaml:"trigger_effective_ms"`
		StanceMS           int     `yaml:"stance_ms"`
		RelevanceRadius    float32 `yaml:"relevance_radius"`
		InteractRadius     float32 `yaml:"interact_radius"`
	} `yaml:"timing"`
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *EngineConfig) APIPort() int {
	if c.Network.APIPort == 0 {
		return 8080
	}
	return c.Network.APIPort
}

// TopicPrefix returns the MQTT topic root, defaulting to the engine id.
func (c *EngineConfig) TopicPrefix() string {
	if c.Network.TopicPrefix != "" {
		return c.Network.TopicPrefix
	}
	if c.Engine.ID != "" {
		return "scene/" + c.Engine.ID
	}
	return "scene"
}

// FrameInterval returns the game loop period, 60 Hz by default.
func (c *EngineConfig) FrameInterval() time.Duration {
	if c.Timing.FrameMS <= 0 {
		return time.Second / 60
	}
	return time.Duration(c.Timing.FrameMS) * time.Millisecond
}

// TriggerEffectiveTime returns the post-load window during which trigger
// events are ignored. An explicit setting wins over the edition profile.
func (c *EngineConfig) TriggerEffectiveTime() time.Duration {
	if c.Timing.TriggerEffectiveMS > 0 {
		return time.Duration(c.Timing.TriggerEffectiveMS) * time.Millisecond
	}
	return c.Profile().TriggerEffectiveTime
}

// StanceDuration returns how long the actor stance animation holds.
func (c *EngineConfig) StanceDuration() time.Duration {
	if c.Timing.StanceMS > 0 {
		return time.Duration(c.Timing.StanceMS) * time.Millisecond
	}
	return c.Profile().StanceDuration
}

// InteractRadius returns the max distance for direct player interaction.
func (c *EngineConfig) InteractRadius() float32 {
	if c.Timing.InteractRadius <= 0 {
		return 2.5
	}
	return c.Timing.InteractRadius
}

// Profile returns the data table for the configured edition.
func (c *EngineConfig) Profile() EditionProfile {
	return ProfileFor(c.Engine.Edition)
}

// SceneDir returns the scene root, "scenes" if unset.
func (c *EngineConfig) SceneDir() string {
	if c.Scene.Dir == "" {
		return "scenes"
	}
	return c.Scene.Dir
}

// ScriptsDir returns the script directory, "scripts" if unset.
func (c *EngineConfig) ScriptsDir() string {
	if c.Scene.ScriptsDir == "" {
		return "scripts"
	}
	return c.Scene.ScriptsDir
}

// Backend returns the persistence backend, memory if unset.
func (c *EngineConfig) Backend() string {
	if c.Persistence.Backend == "" {
		return BackendMemory
	}
	return c.Persistence.Backend
}

// Slot returns the save slot name, "default" if unset.
func (c *EngineConfig) Slot() string {
	if c.Persistence.Slot == "" {
		return "default"
	}
	return c.Persistence.Slot
}

func (c *EngineConfig) validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported engine.yaml version: %d", c.Version)
	}
	switch c.Backend() {
	case BackendMemory, BackendSQLite, BackendPostgres:
	default:
		return fmt.Errorf("unknown persistence backend: %q", c.Persistence.Backend)
	}
	if c.Backend() == BackendSQLite && c.Persistence.Path == "" {
		return fmt.Errorf("persistence.path is required for the sqlite backend")
	}
	if c.Scene.StartLocation == "" || c.Scene.StartScene == "" {
		return fmt.Errorf("scene.start_location and scene.start_scene are required")
	}
	if _, ok := profiles[c.Engine.Edition]; !ok && c.Engine.Edition != "" {
		return fmt.Errorf("unknown edition: %q", c.Engine.Edition)
	}
	return nil
}

// LoadEngineConfig reads engine.yaml, applies the SCENE_* environment
// overlay and validates the result.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

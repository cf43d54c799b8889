package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverlay lists the settings that can be overridden from the environment.
// It is pre-filled from the file so unset variables keep the file value.
type envOverlay struct {
	APIPort     int     `env:"SCENE_API_PORT"`
	MQTTURL     string  `env:"SCENE_MQTT_URL"`
	TopicPrefix string  `env:"SCENE_TOPIC_PREFIX"`
	Edition     Edition `env:"SCENE_EDITION"`
	SceneDir    string  `env:"SCENE_DIR"`
	Backend     string  `env:"SCENE_PERSISTENCE_BACKEND"`
	Path        string  `env:"SCENE_PERSISTENCE_PATH"`
	Slot        string  `env:"SCENE_SAVE_SLOT"`
	Watch       bool    `env:"SCENE_WATCH"`
}

// ApplyEnv overlays SCENE_* environment variables onto cfg.
func ApplyEnv(cfg *EngineConfig) error {
	o := envOverlay{
		APIPort:     cfg.Network.APIPort,
		MQTTURL:     cfg.Network.MQTTURL,
		TopicPrefix: cfg.Network.TopicPrefix,
		Edition:     cfg.Engine.Edition,
		SceneDir:    cfg.Scene.Dir,
		Backend:     cfg.Persistence.Backend,
		Path:        cfg.Persistence.Path,
		Slot:        cfg.Persistence.Slot,
		Watch:       cfg.Scene.Watch,
	}
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	cfg.Network.APIPort = o.APIPort
	cfg.Network.MQTTURL = o.MQTTURL
	cfg.Network.TopicPrefix = o.TopicPrefix
	cfg.Engine.Edition = o.Edition
	cfg.Scene.Dir = o.SceneDir
	cfg.Persistence.Backend = o.Backend
	cfg.Persistence.Path = o.Path
	cfg.Persistence.Slot = o.Slot
	cfg.Scene.Watch = o.Watch
	return nil
}

package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "PLANNER_"

type Application struct {
	Listen   string   `koanf:"listen"`
	DataFile string   `koanf:"datafile"`
	Cors     Cors     `koanf:"cors"`
	Reminder Reminder `koanf:"reminder"`
	Slots    Slots    `koanf:"slots"`
}

type Cors struct {
	AllowedOrigins []string `koanf:"allowedorigins"`
}

type Reminder struct {
	Enabled          bool `koanf:"enabled"`
	IntervalSeconds  int  `koanf:"intervalseconds"`
	LeadMinutes      int  `koanf:"leadminutes"`
	WindowMinutes    int  `koanf:"windowminutes"`
	RetentionMinutes int  `koanf:"retentionminutes"`
	Capacity         int  `koanf:"capacity"`
	FeedSize         int  `koanf:"feedsize"`
}

type Slots struct {
	OffsetMinutes int `koanf:"offsetminutes"`
	StepMinutes   int `koanf:"stepminutes"`
	MaxAttempts   int `koanf:"maxattempts"`
}

func Defaults() Application {
	return Application{
		Listen:   ":8181",
		DataFile: "scheduler_data.txt",
		Cors: Cors{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Reminder: Reminder{
			Enabled:          true,
			IntervalSeconds:  60,
			LeadMinutes:      10,
			WindowMinutes:    1,
			RetentionMinutes: 60,
			Capacity:         1024,
			FeedSize:         50,
		},
		Slots: Slots{
			OffsetMinutes: 30,
			StepMinutes:   15,
			MaxAttempts:   100,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			if k == "cors.allowedorigins" {
				return k, strings.Split(v, ",")
			}
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}
	if err := app.Validate(); err != nil {
		return Application{}, err
	}

	return app, nil
}

// Validate rejects values the store and the reminder service cannot run with.
func (a Application) Validate() error {
	var errs []error
	if a.Listen == "" {
		errs = append(errs, errors.New("listen must not be empty"))
	}
	if a.DataFile == "" {
		errs = append(errs, errors.New("datafile must not be empty"))
	}
	positive := map[string]int{
		"reminder.intervalseconds":  a.Reminder.IntervalSeconds,
		"reminder.leadminutes":      a.Reminder.LeadMinutes,
		"reminder.windowminutes":    a.Reminder.WindowMinutes,
		"reminder.retentionminutes": a.Reminder.RetentionMinutes,
		"reminder.capacity":         a.Reminder.Capacity,
		"reminder.feedsize":         a.Reminder.FeedSize,
		"slots.offsetminutes":       a.Slots.OffsetMinutes,
		"slots.stepminutes":         a.Slots.StepMinutes,
		"slots.maxattempts":         a.Slots.MaxAttempts,
	}
	for _, key := range slices.Sorted(maps.Keys(positive)) {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, positive[key]))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (r Reminder) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

func (r Reminder) Lead() time.Duration {
	return time.Duration(r.LeadMinutes) * time.Minute
}

func (r Reminder) Window() time.Duration {
	return time.Duration(r.WindowMinutes) * time.Minute
}

func (r Reminder) Retention() time.Duration {
	return time.Duration(r.RetentionMinutes) * time.Minute
}

func (s Slots) Offset() time.Duration {
	return time.Duration(s.OffsetMinutes) * time.Minute
}

func (s Slots) Step() time.Duration {
	return time.Duration(s.StepMinutes) * time.Minute
}

package config

import (
	"context"
	"fmt"

	"specctl/internal/envgate"
	"specctl/pkg/logging"
)

// newClientset is replaced in tests with a fake clientset.
var newClientset = envgate.NewClientset

// BuildSource creates the environment source described by cfg. Profile
// values shadow whatever the selected source answers.
func BuildSource(ctx context.Context, cfg EnvironmentConfig) (envgate.Source, error) {
	profile := envgate.MapSource(cfg.Profile)
	if profile == nil {
		profile = envgate.MapSource{}
	}

	var base envgate.Source
	switch cfg.Source {
	case SourceOS, "":
		base = envgate.OSSource{Prefix: cfg.Prefix}
	case SourceStatic:
		logging.Debug("Config", "Using static environment with %d values", len(profile))
		return profile, nil
	case SourceFile:
		src, err := envgate.LoadFileSource(cfg.File)
		if err != nil {
			return nil, err
		}
		logging.Debug("Config", "Loaded %d environment values from %s", len(src), cfg.File)
		base = src
	case SourceConfigMap:
		src, err := loadConfigMap(ctx, cfg.ConfigMap)
		if err != nil {
			return nil, err
		}
		base = src
	default:
		return nil, fmt.Errorf("unknown environment source %q", cfg.Source)
	}

	if len(profile) == 0 {
		return base, nil
	}
	return envgate.Chain{profile, base}, nil
}

func loadConfigMap(ctx context.Context, cm ConfigMapConfig) (envgate.MapSource, error) {
	client, err := newClientset(envgate.ConfigMapRef{
		Namespace:  cm.Namespace,
		Name:       cm.Name,
		Kubeconfig: cm.Kubeconfig,
		Context:    cm.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}
	src, err := envgate.LoadConfigMapSource(ctx, client, cm.Namespace, cm.Name)
	if err != nil {
		return nil, err
	}
	logging.Debug("Config", "Loaded %d environment values from configmap %s/%s", len(src), cm.Namespace, cm.Name)
	return src, nil
}

package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/sprinkler/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		// Keep a stray .env in the working directory out of the picture.
		_ = os.Setenv(config.EnvEnvFile, filepath.Join(t.TempDir(), "absent.env"))
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ModelPath, convey.ShouldEqual, "models/sprinkler.yaml")
				convey.So(cfg.InputDimension, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SPRINKLER_ADDR", ":8080")
			_ = os.Setenv("SPRINKLER_PREDICT_TIMEOUT_MS", "250")
			_ = os.Setenv("SPRINKLER_ACTUATION_ENABLED", "true")
			_ = os.Setenv("SPRINKLER_MQTT_QOS", "2")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.PredictTimeoutMS, convey.ShouldEqual, 250)
				convey.So(cfg.ActuationEnabled, convey.ShouldBeTrue)
				convey.So(cfg.MQTTQoS, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := writeFile(t, "config.yaml", `
addr: ":9090"
model_source: remote
model_url: "http://models.local:8500"
input_dimension: 12
output_dimension: 6
`)
			_ = os.Setenv(config.EnvConfig, path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.ModelSource, convey.ShouldEqual, config.ModelSourceRemote)
				convey.So(cfg.ModelURL, convey.ShouldEqual, "http://models.local:8500")
				convey.So(cfg.InputDimension, convey.ShouldEqual, 12)
				convey.So(cfg.OutputDimension, convey.ShouldEqual, 6)
			})

			convey.Convey("And environment variables override file values", func() {
				_ = os.Setenv("SPRINKLER_INPUT_DIMENSION", "20")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.InputDimension, convey.ShouldEqual, 20)
				convey.So(cfg.OutputDimension, convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When a .env file is present", func() {
			path := writeFile(t, "test.env", "SPRINKLER_MQTT_TOPIC=farm/a/sprinklers\nSPRINKLER_LOG_LEVEL=debug\n")
			_ = os.Setenv(config.EnvEnvFile, path)
			_ = os.Setenv("SPRINKLER_LOG_LEVEL", "warn")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it fills gaps but never overrides the environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MQTTTopic, convey.ShouldEqual, "farm/a/sprinklers")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv(config.EnvConfig, filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the merged config is invalid", func() {
			_ = os.Setenv("SPRINKLER_MODEL_SOURCE", "ftp")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

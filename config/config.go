package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Port      string `mapstructure:"PORT"`
	OutputDir string `mapstructure:"OUTPUT_DIR"`
	UploadDir string `mapstructure:"UPLOAD_DIR"`

	FFBin       string `mapstructure:"FF_BIN"`
	FFProbeBin  string `mapstructure:"FFPROBE_BIN"`
	FFExtraArgs string `mapstructure:"FF_EXTRA_ARGS"`

	DemucsBin       string `mapstructure:"DEMUCS_BIN"`
	DemucsModel     string `mapstructure:"DEMUCS_MODEL"`
	DemucsDevice    string `mapstructure:"DEMUCS_DEVICE"`
	DemucsExtraArgs string `mapstructure:"DEMUCS_EXTRA_ARGS"`

	TaskTimeout      time.Duration `mapstructure:"TASK_TIMEOUT"`
	MaxUploadSize    int64         `mapstructure:"MAX_UPLOAD_SIZE"`
	MaxConcurrency   int           `mapstructure:"MAX_CONCURRENCY"`
	KeepVideo        bool          `mapstructure:"KEEP_VIDEO"`
	ThrottleFreeMem  int64         `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk int64         `mapstructure:"THROTTLE_FREEDISK"`

	// Client-side settings for the upload/poll commands.
	ServerURL    string        `mapstructure:"SERVER_URL"`
	PollInterval time.Duration `mapstructure:"POLL_INTERVAL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	LogFile   string `mapstructure:"LOG_FILE"`
}

// stringToDurationHookFunc is a custom Viper hook for parsing Go's duration strings.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// We only care about converting strings to time.Duration.
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc is a custom Viper hook for parsing human-readable size strings.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// We only care about converting strings to int64s for byte sizes.
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		err := size.UnmarshalText([]byte(data.(string)))
		if err != nil {
			// Not a valid size string, let other parsers handle it.
			return data, nil
		}

		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	// Set default values as strings, the hooks will handle them.
	vp.SetDefault("PORT", "8000")
	vp.SetDefault("OUTPUT_DIR", "karaoke_output")
	vp.SetDefault("UPLOAD_DIR", "uploads")
	vp.SetDefault("FF_BIN", "ffmpeg")
	vp.SetDefault("FFPROBE_BIN", "ffprobe")
	vp.SetDefault("FF_EXTRA_ARGS", "")
	vp.SetDefault("DEMUCS_BIN", "demucs")
	vp.SetDefault("DEMUCS_MODEL", "htdemucs_ft")
	vp.SetDefault("DEMUCS_DEVICE", "auto")
	vp.SetDefault("DEMUCS_EXTRA_ARGS", "")
	vp.SetDefault("TASK_TIMEOUT", "45m")
	vp.SetDefault("MAX_UPLOAD_SIZE", "2GB")
	vp.SetDefault("MAX_CONCURRENCY", 1)
	vp.SetDefault("KEEP_VIDEO", true)
	vp.SetDefault("THROTTLE_FREEMEM", "500MB")
	vp.SetDefault("THROTTLE_FREEDISK", "1GB")
	vp.SetDefault("SERVER_URL", "http://127.0.0.1:8000")
	vp.SetDefault("POLL_INTERVAL", "2s")
	vp.SetDefault("LOG_LEVEL", "info")
	vp.SetDefault("LOG_FORMAT", "console")
	vp.SetDefault("LOG_FILE", "")

	// Load from config file
	vp.SetConfigName("karaokebox_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/karaokebox/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Load from environment variables
	vp.SetEnvPrefix("KARAOKEBOX")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	// Unmarshal the config, providing our custom composed hooks.
	// The order matters: the first hook that succeeds is used.
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

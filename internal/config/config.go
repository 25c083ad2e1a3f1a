// Package config loads attrparse.toml, the optional project file holding
// defaults for the CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"attrparse/internal/diag"
	"attrparse/internal/grammars"
)

// FileName is the name searched for by Find.
const FileName = "attrparse.toml"

type Config struct {
	Parse ParseConfig `toml:"parse"`
	Batch BatchConfig `toml:"batch"`
	Trace TraceConfig `toml:"trace"`
}

type ParseConfig struct {
	Grammar string `toml:"grammar" validate:"omitempty,grammar"`
	Start   string `toml:"start"`
	// AmbiguityLimit caps the trees printed or exploded per result.
	AmbiguityLimit int  `toml:"ambiguity_limit" validate:"gte=1,lte=1000000"`
	NFC            bool `toml:"nfc"`
}

type BatchConfig struct {
	Jobs int    `toml:"jobs" validate:"gte=0,lte=1024"`
	UI   string `toml:"ui" validate:"oneof=auto on off"`
}

type TraceConfig struct {
	Level     string `toml:"level" validate:"oneof=off error phase detail debug"`
	Mode      string `toml:"mode" validate:"oneof=stream ring both"`
	Output    string `toml:"output"`
	RingSize  int    `toml:"ring_size" validate:"gte=0"`
	Heartbeat string `toml:"heartbeat" validate:"omitempty,duration"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Parse: ParseConfig{Grammar: "calc", AmbiguityLimit: 100},
		Batch: BatchConfig{UI: "auto"},
		Trace: TraceConfig{Level: "off", Mode: "stream", RingSize: 4096},
	}
}

// HeartbeatInterval returns the parsed heartbeat, 0 when unset.
func (c TraceConfig) HeartbeatInterval() time.Duration {
	d, _ := time.ParseDuration(c.Heartbeat)
	return d
}

// Error reports an unreadable or invalid configuration file.
type Error struct {
	Code diag.Code
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Path, e.Code.ID(), e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code.ID(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("grammar", func(fl validator.FieldLevel) bool {
		return slices.Contains(grammars.Names(), fl.Field().String())
	})
	_ = validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
}

// Find looks for attrparse.toml in startDir and its parents.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load reads path on top of Default. Unknown keys and invalid values are
// errors.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, &Error{Code: diag.CfgDecode, Path: path, Msg: "failed to parse TOML", Err: err}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, &Error{Code: diag.CfgUnknown, Path: path, Msg: "unknown keys " + strings.Join(keys, ", ")}
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, &Error{Code: diag.CfgValidate, Path: path, Msg: describe(err)}
	}
	return cfg, nil
}

// Discover finds and loads the nearest attrparse.toml. Without one it
// returns Default and an empty path.
func Discover(startDir string) (Config, string, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !ok {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %v fails %s=%s", field, fe.Value(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %v fails %s", field, fe.Value(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

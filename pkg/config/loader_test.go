package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arclight-platform/arclight-core/internal/testutil"
	acerr "github.com/arclight-platform/arclight-core/pkg/errors"
)

// testConfig exercises every supported field type plus nesting.
type testConfig struct {
	Name     string        `json:"name" yaml:"name" env:"NAME" envDefault:"arclight"`
	Debug    bool          `json:"debug" yaml:"debug" env:"DEBUG"`
	Port     int           `json:"port" yaml:"port" env:"PORT" envDefault:"8080"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout" env:"TIMEOUT" envDefault:"30s"`
	Tags     []string      `json:"tags" yaml:"tags" env:"TAGS"`
	Endpoint nestedConfig  `json:"endpoint" yaml:"endpoint" env:"ENDPOINT"`
}

type nestedConfig struct {
	URL     string        `json:"url" yaml:"url" env:"URL"`
	Retries int           `json:"retries" yaml:"retries" env:"RETRIES" envDefault:"3"`
	Backoff time.Duration `json:"backoff" yaml:"backoff" env:"BACKOFF" envDefault:"500ms"`
}

// requiredConfig has a field that must be set by one of the layers.
type requiredConfig struct {
	Token string `json:"token" yaml:"token" env:"TOKEN" required:"true"`
}

// validatedConfig implements the Validator interface.
type validatedConfig struct {
	Mode string `json:"mode" yaml:"mode" env:"MODE" envDefault:"strict"`
}

func (c *validatedConfig) Validate() error {
	if c.Mode != "strict" && c.Mode != "relaxed" {
		return acerr.Validationf("unknown mode %q", c.Mode)
	}
	return nil
}

func TestLoader_Defaults(t *testing.T) {
	var cfg testConfig
	err := New().Load(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "arclight", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.Endpoint.Retries, "defaults apply inside nested structs")
	assert.Equal(t, 500*time.Millisecond, cfg.Endpoint.Backoff)
	assert.False(t, cfg.Debug)
	assert.Nil(t, cfg.Tags)
}

func TestLoader_EnvOverridesDefaults(t *testing.T) {
	testutil.SetEnv(t, "NAME", "from-env")
	testutil.SetEnv(t, "PORT", "9090")
	testutil.SetEnv(t, "DEBUG", "true")
	testutil.SetEnv(t, "TIMEOUT", "2m")
	testutil.SetEnv(t, "TAGS", "alpha, beta,gamma")

	var cfg testConfig
	err := New().Load(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, cfg.Tags,
		"comma-separated values are split and trimmed")
}

func TestLoader_EnvPrefix(t *testing.T) {
	testutil.SetEnv(t, "APP_NAME", "prefixed")
	testutil.SetEnv(t, "APP_ENDPOINT_URL", "https://svc.example.com")
	testutil.SetEnv(t, "APP_ENDPOINT_RETRIES", "7")

	var cfg testConfig
	err := New().WithEnvPrefix("app").Load(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.Name)
	assert.Equal(t, "https://svc.example.com", cfg.Endpoint.URL,
		"nested env names join the parent tag with an underscore")
	assert.Equal(t, 7, cfg.Endpoint.Retries)
}

func TestLoader_YAMLFile(t *testing.T) {
	path := testutil.TempConfigFile(t, `
name: from-yaml
port: 7070
endpoint:
  url: https://yaml.example.com
`, ".yaml")

	var cfg testConfig
	err := New().WithFile(path).Load(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "from-yaml", cfg.Name)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "https://yaml.example.com", cfg.Endpoint.URL)
	assert.Equal(t, 3, cfg.Endpoint.Retries, "file values merge over defaults")
}

func TestLoader_JSONFile(t *testing.T) {
	path := testutil.TempConfigFile(t, `{"name": "from-json", "debug": true}`, ".json")

	var cfg testConfig
	err := New().WithFile(path).Load(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "from-json", cfg.Name)
	assert.True(t, cfg.Debug)
}

func TestLoader_EnvBeatsFile(t *testing.T) {
	path := testutil.TempConfigFile(t, "name: from-yaml\n", ".yaml")
	testutil.SetEnv(t, "NAME", "from-env")

	var cfg testConfig
	err := New().WithFile(path).Load(&cfg)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Name, "environment variables take final precedence")
}

func TestLoader_MissingFileIgnored(t *testing.T) {
	var cfg testConfig
	err := New().WithFile(t.TempDir() + "/absent.yaml").Load(&cfg)
	assert.NoError(t, err, "file configuration is optional")
}

func TestLoader_FileErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		msgPart string
	}{
		{
			name:    "unsupported extension",
			path:    func(t *testing.T) string { return testutil.TempConfigFile(t, "name: x", ".toml") },
			msgPart: "unsupported file extension",
		},
		{
			name:    "invalid yaml",
			path:    func(t *testing.T) string { return testutil.TempConfigFile(t, "name: [unclosed", ".yaml") },
			msgPart: "failed to parse YAML",
		},
		{
			name:    "invalid json",
			path:    func(t *testing.T) string { return testutil.TempConfigFile(t, "{not json", ".json") },
			msgPart: "failed to parse JSON",
		},
		{
			name:    "directory traversal",
			path:    func(t *testing.T) string { return "../../etc/passwd.yaml" },
			msgPart: "directory traversal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg testConfig
			err := New().WithFile(tt.path(t)).Load(&cfg)
			testutil.RequireErrorCode(t, err, acerr.CodeInternalConfiguration)
			assert.True(t, strings.Contains(acerr.FromError(err).Message, tt.msgPart),
				"message %q should mention %q", acerr.FromError(err).Message, tt.msgPart)
		})
	}
}

func TestLoader_InvalidTargets(t *testing.T) {
	err := New().Load(nil)
	testutil.RequireErrorCode(t, err, acerr.CodeInternalConfiguration)

	var notAStruct int
	err = New().Load(&notAStruct)
	testutil.RequireErrorCode(t, err, acerr.CodeInternalConfiguration)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	testutil.SetEnv(t, "PORT", "not-a-number")

	var cfg testConfig
	err := New().Load(&cfg)
	testutil.RequireErrorCode(t, err, acerr.CodeInternalConfiguration)
}

func TestLoader_RequiredField(t *testing.T) {
	testutil.UnsetEnv(t, "TOKEN")

	var cfg requiredConfig
	err := New().Load(&cfg)
	testutil.RequireErrorCode(t, err, acerr.CodeValidationRequired)

	testutil.SetEnv(t, "TOKEN", "present")
	var filled requiredConfig
	err = New().Load(&filled)
	assert.NoError(t, err)
	assert.Equal(t, "present", filled.Token)
}

func TestLoader_CustomValidator(t *testing.T) {
	testutil.UnsetEnv(t, "MODE")

	var cfg validatedConfig
	err := New().Load(&cfg)
	assert.NoError(t, err, "the default mode passes custom validation")

	testutil.SetEnv(t, "MODE", "chaotic")
	var invalid validatedConfig
	err = New().Load(&invalid)
	testutil.RequireErrorCode(t, err, acerr.CodeValidation)
}

func TestMustLoad(t *testing.T) {
	testutil.SetEnv(t, "NAME", "must-load")

	cfg := MustLoad[testConfig](New())
	assert.Equal(t, "must-load", cfg.Name)

	assert.Panics(t, func() {
		MustLoad[requiredConfig](New().WithEnvPrefix("UNSET_PREFIX"))
	}, "MustLoad panics when a required field stays empty")
}

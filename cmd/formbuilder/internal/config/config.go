// Package config provides configuration management for the form builder.
// Settings come from a YAML file with centralized defaults. A .env file and
// FORMBUILDER_* environment variables override file values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/formbuilder"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/logging"
	"github.com/thalib/formbuilder/cmd/formbuilder/internal/widget"
)

const (
	// VersionMajor is the major version number
	VersionMajor = 1
	// VersionMinor is the minor version number
	VersionMinor = 4
	// EnvPrefix prefixes environment variable overrides
	EnvPrefix = "FORMBUILDER"
)

// Version returns the version string in format {major}.{minor}
func Version() string {
	return fmt.Sprintf("%d.%d", VersionMajor, VersionMinor)
}

// Defaults contains all default configuration values
// centralized in one place to avoid hardcoded literals
var Defaults = struct {
	Server struct {
		Port   int
		Host   string
		Prefix string
	}
	Database struct {
		ConnectionString   string
		MaxOpenConns       int
		MaxIdleConns       int
		ConnMaxLifetime    int
		SlowQueryThreshold int
	}
	Logging struct {
		Level  string
		Format string
	}
	ConfigPath string
}{
	Server: struct {
		Port   int
		Host   string
		Prefix string
	}{
		Port: 6007,
		Host: "0.0.0.0",
	},
	Database: struct {
		ConnectionString   string
		MaxOpenConns       int
		MaxIdleConns       int
		ConnMaxLifetime    int
		SlowQueryThreshold int
	}{
		ConnectionString:   "sqlite://formbuilder.db",
		MaxOpenConns:       25,
		MaxIdleConns:       5,
		ConnMaxLifetime:    300, // 5 minutes
		SlowQueryThreshold: 500, // 500 milliseconds
	},
	Logging: struct {
		Level  string
		Format string
	}{
		Level:  "info",
		Format: "simple",
	},
	ConfigPath: "formbuilder.yaml",
}

// AppConfig holds the application configuration.
// It is designed to be immutable after initialization.
type AppConfig struct {
	Server   ServerConfig           `mapstructure:"server"`
	Database DatabaseConfig         `mapstructure:"database"`
	Logging  LoggingConfig          `mapstructure:"logging"`
	Auth     AuthConfig             `mapstructure:"auth"`
	Form     FormConfig             `mapstructure:"form"`
	Tables   map[string]TableConfig `mapstructure:"tables"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	Host   string `mapstructure:"host"`
	Prefix string `mapstructure:"prefix"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	ConnectionString   string `mapstructure:"connection_string"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    int    `mapstructure:"conn_max_lifetime"`    // in seconds
	SlowQueryThreshold int    `mapstructure:"slow_query_threshold"` // in milliseconds
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level                     string   `mapstructure:"level"`
	Format                    string   `mapstructure:"format"` // json, console or simple
	Path                      string   `mapstructure:"path"`   // log file; empty logs to stdout
	AdditionalSensitiveFields []string `mapstructure:"additional_sensitive_fields"`
}

// AuthConfig holds authentication configuration. Form submissions require a
// bearer token signed with JWTSecret when it is set.
type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"`
	ProtectForms bool   `mapstructure:"protect_forms"` // also require a token to render forms
}

// FormConfig holds the global form generation settings.
type FormConfig struct {
	Toolkit               string                       `mapstructure:"toolkit"`
	AddFormHeader         bool                         `mapstructure:"add_form_header"`
	FormHeaderText        string                       `mapstructure:"form_header_text"`
	RuleViolationMessage  string                       `mapstructure:"rule_violation_message"`
	RequiredRuleMessage   string                       `mapstructure:"required_rule_message"`
	ValidateOnProcess     bool                         `mapstructure:"validate_on_process"`
	HidePrimaryKey        bool                         `mapstructure:"hide_primary_key"`
	CreateSubmit          bool                         `mapstructure:"create_submit"`
	SubmitText            string                       `mapstructure:"submit_text"`
	LinkDisplayFields     []string                     `mapstructure:"link_display_fields"`
	LinkDisplayLevel      int                          `mapstructure:"link_display_level"`
	LinkDisplaySeparator  string                       `mapstructure:"link_display_separator"`
	LinkOrderFields       []string                     `mapstructure:"link_order_fields"`
	ElementNamePrefix     string                       `mapstructure:"element_name_prefix"`
	ElementNamePostfix    string                       `mapstructure:"element_name_postfix"`
	CrossLinkSeparator    string                       `mapstructure:"cross_link_separator"`
	DateElementFormat     string                       `mapstructure:"date_element_format"`
	TimeElementFormat     string                       `mapstructure:"time_element_format"`
	DateTimeElementFormat string                       `mapstructure:"datetime_element_format"`
	ElementTypeAttributes map[string]map[string]string `mapstructure:"element_type_attributes"`
}

// TableConfig holds the settings of one table. Unset scalar settings fall
// back to the form section.
type TableConfig struct {
	AddFormHeader        *bool   `mapstructure:"add_form_header"`
	FormHeaderText       *string `mapstructure:"form_header_text"`
	RuleViolationMessage *string `mapstructure:"rule_violation_message"`
	RequiredRuleMessage  *string `mapstructure:"required_rule_message"`
	ValidateOnProcess    *bool   `mapstructure:"validate_on_process"`
	HidePrimaryKey       *bool   `mapstructure:"hide_primary_key"`
	CreateSubmit         *bool   `mapstructure:"create_submit"`
	SubmitText           *string `mapstructure:"submit_text"`
	ElementNamePrefix    *string `mapstructure:"element_name_prefix"`
	ElementNamePostfix   *string `mapstructure:"element_name_postfix"`
	LinkDisplayLevel     *int    `mapstructure:"link_display_level"`

	FieldLabels        map[string]string            `mapstructure:"field_labels"`
	FieldsToRender     []string                     `mapstructure:"fields_to_render"`
	UserEditableFields []string                     `mapstructure:"user_editable_fields"`
	PreDefOrder        []string                     `mapstructure:"order"`
	PreDefGroups       map[string]string            `mapstructure:"groups"`
	SelectAddEmpty     []string                     `mapstructure:"select_add_empty"`
	DateFields         []string                     `mapstructure:"date_fields"`
	TimeFields         []string                     `mapstructure:"time_fields"`
	TextFields         []string                     `mapstructure:"text_fields"`
	EnumFields         []string                     `mapstructure:"enum_fields"`
	EnumOptions        map[string][]string          `mapstructure:"enum_options"`
	CrossLinks         []formbuilder.CrossLink      `mapstructure:"cross_links"`
	TripleLinks        []formbuilder.TripleLink     `mapstructure:"triple_links"`
	LinkDisplayFields  []string                     `mapstructure:"link_display_fields"`
	LinkOrderFields    []string                     `mapstructure:"link_order_fields"`
	LinkElementTypes   map[string]string            `mapstructure:"link_element_types"`
	FieldAttributes    map[string]map[string]string `mapstructure:"field_attributes"`
}

var globalConfig *AppConfig

// Load initializes and loads the application configuration. An empty
// configPath reads the default file when it exists.
func Load(configPath string) (*AppConfig, error) {
	LoadEnv()

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(Defaults.ConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if configPath != "" {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// a missing default file means defaults only
		if !isNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees environment variables of bound keys
	for _, key := range []string{
		"server.port",
		"server.host",
		"server.prefix",
		"database.connection_string",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.slow_query_threshold",
		"logging.level",
		"logging.format",
		"logging.path",
		"auth.jwt_secret",
		"auth.protect_forms",
		"form.toolkit",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	globalConfig = &cfg

	return &cfg, nil
}

// LoadEnv loads .env from the working directory into the process
// environment. Variables that are already set win.
func LoadEnv() {
	_ = godotenv.Load()
}

func setDefaults(v *viper.Viper) {
	form := formbuilder.DefaultOptions()

	v.SetDefault("server.port", Defaults.Server.Port)
	v.SetDefault("server.host", Defaults.Server.Host)
	v.SetDefault("server.prefix", Defaults.Server.Prefix)
	v.SetDefault("database.connection_string", Defaults.Database.ConnectionString)
	v.SetDefault("database.max_open_conns", Defaults.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", Defaults.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", Defaults.Database.ConnMaxLifetime)
	v.SetDefault("database.slow_query_threshold", Defaults.Database.SlowQueryThreshold)
	v.SetDefault("logging.level", Defaults.Logging.Level)
	v.SetDefault("logging.format", Defaults.Logging.Format)
	v.SetDefault("auth.protect_forms", false)
	v.SetDefault("form.toolkit", form.Toolkit)
	v.SetDefault("form.add_form_header", form.AddFormHeader)
	v.SetDefault("form.rule_violation_message", form.RuleViolationMessage)
	v.SetDefault("form.required_rule_message", form.RequiredRuleMessage)
	v.SetDefault("form.validate_on_process", form.ValidateOnProcess)
	v.SetDefault("form.hide_primary_key", form.HidePrimaryKey)
	v.SetDefault("form.create_submit", form.CreateSubmit)
	v.SetDefault("form.submit_text", form.SubmitText)
	v.SetDefault("form.link_display_level", form.LinkDisplayLevel)
	v.SetDefault("form.link_display_separator", form.LinkDisplaySeparator)
	v.SetDefault("form.cross_link_separator", form.CrossLinkSeparator)
	v.SetDefault("form.date_element_format", form.DateElementFormat)
	v.SetDefault("form.time_element_format", form.TimeElementFormat)
	v.SetDefault("form.datetime_element_format", form.DateTimeElementFormat)
}

func isNotExist(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	// SetConfigFile reports a missing file as an *fs.PathError
	return errors.Is(err, fs.ErrNotExist)
}

// validate checks the configuration and normalizes optional values.
func validate(cfg *AppConfig) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Server.Prefix != "" && !strings.HasPrefix(cfg.Server.Prefix, "/") {
		cfg.Server.Prefix = "/" + cfg.Server.Prefix
	}
	cfg.Server.Prefix = strings.TrimSuffix(cfg.Server.Prefix, "/")

	if cfg.Database.ConnectionString == "" {
		cfg.Database.ConnectionString = Defaults.Database.ConnectionString
	}
	if cfg.Database.SlowQueryThreshold <= 0 {
		cfg.Database.SlowQueryThreshold = Defaults.Database.SlowQueryThreshold
	}

	switch cfg.Logging.Format {
	case "json", "console", "simple":
	case "":
		cfg.Logging.Format = Defaults.Logging.Format
	default:
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	if _, err := widget.New(cfg.Form.Toolkit); err != nil {
		return fmt.Errorf("form.toolkit: %w", err)
	}

	for name, table := range cfg.Tables {
		for i, link := range table.CrossLinks {
			if link.Table == "" {
				return fmt.Errorf("tables.%s.cross_links[%d]: table is required", name, i)
			}
			if link.Type != "" && link.Type != formbuilder.CrossLinkCheckbox && link.Type != formbuilder.CrossLinkSelect {
				return fmt.Errorf("tables.%s.cross_links[%d]: invalid type %q", name, i, link.Type)
			}
		}
		for i, link := range table.TripleLinks {
			if link.Table == "" {
				return fmt.Errorf("tables.%s.triple_links[%d]: table is required", name, i)
			}
		}
		for field, kind := range table.LinkElementTypes {
			if kind != string(widget.KindSelect) && kind != string(widget.KindRadio) {
				return fmt.Errorf("tables.%s.link_element_types.%s: must be select or radio", name, field)
			}
		}
	}

	return nil
}

// FormOptions converts the form and tables sections into builder options
func (c *AppConfig) FormOptions() formbuilder.Options {
	f := c.Form
	opts := formbuilder.DefaultOptions()

	opts.Toolkit = f.Toolkit
	opts.AddFormHeader = f.AddFormHeader
	opts.FormHeaderText = f.FormHeaderText
	opts.RuleViolationMessage = f.RuleViolationMessage
	opts.RequiredRuleMessage = f.RequiredRuleMessage
	opts.ValidateOnProcess = f.ValidateOnProcess
	opts.HidePrimaryKey = f.HidePrimaryKey
	opts.CreateSubmit = f.CreateSubmit
	opts.SubmitText = f.SubmitText
	opts.LinkDisplayFields = f.LinkDisplayFields
	opts.LinkDisplayLevel = f.LinkDisplayLevel
	opts.LinkDisplaySeparator = f.LinkDisplaySeparator
	opts.LinkOrderFields = f.LinkOrderFields
	opts.ElementNamePrefix = f.ElementNamePrefix
	opts.ElementNamePostfix = f.ElementNamePostfix
	opts.CrossLinkSeparator = f.CrossLinkSeparator
	opts.DateElementFormat = f.DateElementFormat
	opts.TimeElementFormat = f.TimeElementFormat
	opts.DateTimeElementFormat = f.DateTimeElementFormat

	if len(f.ElementTypeAttributes) > 0 {
		opts.ElementTypeAttributes = make(map[widget.Kind]map[string]string, len(f.ElementTypeAttributes))
		for kind, attrs := range f.ElementTypeAttributes {
			opts.ElementTypeAttributes[widget.Kind(kind)] = maps.Clone(attrs)
		}
	}

	if len(c.Tables) > 0 {
		opts.Tables = make(map[string]formbuilder.Overrides, len(c.Tables))
		for name, t := range c.Tables {
			opts.Tables[name] = t.overrides()
		}
	}
	return opts
}

func (t TableConfig) overrides() formbuilder.Overrides {
	return formbuilder.Overrides{
		AddFormHeader:        t.AddFormHeader,
		FormHeaderText:       t.FormHeaderText,
		RuleViolationMessage: t.RuleViolationMessage,
		RequiredRuleMessage:  t.RequiredRuleMessage,
		ValidateOnProcess:    t.ValidateOnProcess,
		HidePrimaryKey:       t.HidePrimaryKey,
		CreateSubmit:         t.CreateSubmit,
		SubmitText:           t.SubmitText,
		ElementNamePrefix:    t.ElementNamePrefix,
		ElementNamePostfix:   t.ElementNamePostfix,
		LinkDisplayLevel:     t.LinkDisplayLevel,
		FieldLabels:          t.FieldLabels,
		FieldsToRender:       t.FieldsToRender,
		UserEditableFields:   t.UserEditableFields,
		PreDefOrder:          t.PreDefOrder,
		PreDefGroups:         t.PreDefGroups,
		SelectAddEmpty:       t.SelectAddEmpty,
		DateFields:           t.DateFields,
		TimeFields:           t.TimeFields,
		TextFields:           t.TextFields,
		EnumFields:           t.EnumFields,
		EnumOptions:          t.EnumOptions,
		CrossLinks:           t.CrossLinks,
		TripleLinks:          t.TripleLinks,
		LinkDisplayFields:    t.LinkDisplayFields,
		LinkOrderFields:      t.LinkOrderFields,
		LinkElementTypes:     t.LinkElementTypes,
		FieldAttributes:      t.FieldAttributes,
	}
}

// LoggerConfig converts the logging section into a logger configuration
func (c *AppConfig) LoggerConfig() logging.LoggerConfig {
	return logging.LoggerConfig{
		Level:              logging.ParseLevel(c.Logging.Level),
		Format:             c.Logging.Format,
		FilePath:           c.Logging.Path,
		ServiceName:        "formbuilder",
		Version:            Version(),
		SlowQueryThreshold: time.Duration(c.Database.SlowQueryThreshold) * time.Millisecond,
		SensitiveFields:    c.Logging.AdditionalSensitiveFields,
	}
}

// Get returns the global configuration instance.
// This is thread-safe as the config is immutable after Load().
func Get() *AppConfig {
	if globalConfig == nil {
		panic("configuration not loaded - call config.Load() first")
	}
	return globalConfig
}

package api

// Config is the launcher configuration format, shipped bundled with the
// application and optionally refreshed from ConfigURL at startup.
type Config struct {
	DisableDownloads bool     `yaml:"disable_downloads"`
	ConfigURL        string   `yaml:"config_url"`
	ContentURL       string   `yaml:"content_url"`
	UpdateURL        string   `yaml:"update_url"`
	Resources        []string `yaml:"resources"`
	Engines          []string `yaml:"engines"`
	Games            []string `yaml:"games"`
	Maps             []string `yaml:"maps"`
	NextGen          []string `yaml:"nextgen"`
	NextGenGames     bool     `yaml:"nextgen_games"`
	Launch           Launch   `yaml:"launch"`

	// Set by the loader, not from YAML.
	FilePath string `yaml:"-"`
}

// Launch configures how the engine process is started.
type Launch struct {
	EnginePath   string   `yaml:"engine_path"` // explicit override; wins over derivation
	Engine       string   `yaml:"engine"`      // engine name used to derive the path
	StartArgs    []string `yaml:"start_args"`
	AutoStart    bool     `yaml:"auto_start"`
	SilentUpdate bool     `yaml:"silent_update"`
}

// EngineName returns the engine the launcher should start: the explicit
// launch.engine if set, otherwise the first configured engine download.
func (c *Config) EngineName() string {
	if c.Launch.Engine != "" {
		return c.Launch.Engine
	}
	if len(c.Engines) > 0 {
		return c.Engines[0]
	}
	return ""
}

// Package config is for app wide settings that are unmarshalled
// from Viper (see: /cmd)
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Database presets
const (
	FullDBs    = "full_dbs"
	ReducedDBs = "reduced_dbs"
)

// Template searchers
const (
	HHSearch  = "hhsearch"
	Hmmsearch = "hmmsearch"
)

// EnvPrefix prefixes the environment variables that override settings,
// eg AFDATA_DATA_DIR
const EnvPrefix = "AFDATA"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Binaries are paths to the search tools. Bare names are looked up on PATH.
type Binaries struct {
	// jackhmmer, for uniref90, mgnify and the small BFD
	Jackhmmer string `mapstructure:"jackhmmer" validate:"required"`

	// hhblits, for BFD and Uniclust30
	HHBlits string `mapstructure:"hhblits" validate:"required"`

	// hhsearch, for pdb70
	HHSearch string `mapstructure:"hhsearch" validate:"required"`

	// hmmsearch, for pdb_seqres
	Hmmsearch string `mapstructure:"hmmsearch" validate:"required"`

	// hmmbuild, builds the hmmsearch query profile
	Hmmbuild string `mapstructure:"hmmbuild" validate:"required"`
}

// Config is the root-level settings struct and is a mix
// of settings available in a settings file, the environment and
// those available from the command line
type Config struct {
	// root of the genetic databases, the default location of each database
	DataDir string `mapstructure:"data_dir"`

	// full_dbs searches BFD and Uniclust30, reduced_dbs the small BFD
	DBPreset string `mapstructure:"db_preset" validate:"oneof=full_dbs reduced_dbs"`

	// derived from DBPreset
	UseSmallBFD bool `mapstructure:"-"`

	// reuse alignments already in the output directory
	UsePrecomputedMSAs bool `mapstructure:"use_precomputed_msas"`

	// threads given to each search tool
	NCPU int `mapstructure:"n_cpu" validate:"min=1"`

	// row cap of the uniref90 alignment
	UnirefMaxHits int `mapstructure:"uniref_max_hits" validate:"min=1"`

	// row cap of the mgnify alignment
	MgnifyMaxHits int `mapstructure:"mgnify_max_hits" validate:"min=1"`

	// row cap of the small BFD alignment, 0 for none
	SmallBFDMaxHits int `mapstructure:"small_bfd_max_hits" validate:"min=0"`

	// hhsearch or hmmsearch
	TemplateSearcher string `mapstructure:"template_searcher" validate:"oneof=hhsearch hmmsearch"`

	// templates released after this date (YYYY-MM-DD) are skipped
	MaxTemplateDate string `mapstructure:"max_template_date" validate:"datetime=2006-01-02"`

	// parsed MaxTemplateDate
	TemplateCutoff time.Time `mapstructure:"-"`

	// most templates featurized per query
	MaxTemplateHits int `mapstructure:"max_template_hits" validate:"min=1"`

	Uniref90DatabasePath  string `mapstructure:"uniref90_database_path" validate:"required"`
	MgnifyDatabasePath    string `mapstructure:"mgnify_database_path" validate:"required"`
	BFDDatabasePath       string `mapstructure:"bfd_database_path" validate:"required_if=UseSmallBFD false"`
	UniclustDatabasePath  string `mapstructure:"uniclust30_database_path" validate:"required_if=UseSmallBFD false"`
	SmallBFDDatabasePath  string `mapstructure:"small_bfd_database_path" validate:"required_if=UseSmallBFD true"`
	PDB70DatabasePath     string `mapstructure:"pdb70_database_path" validate:"required_if=TemplateSearcher hhsearch"`
	PDBSeqresDatabasePath string `mapstructure:"pdb_seqres_database_path" validate:"required_if=TemplateSearcher hmmsearch"`

	// OBSLTE records of the PDB obsolete.dat listing, optional
	ObsoletePDBsPath string `mapstructure:"obsolete_pdbs_path"`

	// "<pdb id>: YYYY-MM-DD" lines, optional
	ReleaseDatesPath string `mapstructure:"release_dates_path"`

	// search tool paths
	Binaries Binaries `mapstructure:"binaries"`
}

// defaults of every setting, also the keys that environment variables bind to
var defaults = map[string]any{
	"data_dir":                 "",
	"db_preset":                FullDBs,
	"use_precomputed_msas":     false,
	"n_cpu":                    8,
	"uniref_max_hits":          10000,
	"mgnify_max_hits":          501,
	"small_bfd_max_hits":       0,
	"template_searcher":        HHSearch,
	"max_template_date":        "2020-05-14",
	"max_template_hits":        20,
	"uniref90_database_path":   "",
	"mgnify_database_path":     "",
	"bfd_database_path":        "",
	"uniclust30_database_path": "",
	"small_bfd_database_path":  "",
	"pdb70_database_path":      "",
	"pdb_seqres_database_path": "",
	"obsolete_pdbs_path":       "",
	"release_dates_path":       "",
	"binaries.jackhmmer":       "jackhmmer",
	"binaries.hhblits":         "hhblits",
	"binaries.hhsearch":        "hhsearch",
	"binaries.hmmsearch":       "hmmsearch",
	"binaries.hmmbuild":        "hmmbuild",
}

// layout is where each database lives under data_dir
var layout = map[string]string{
	"uniref90_database_path":   filepath.Join("uniref90", "uniref90.fasta"),
	"mgnify_database_path":     filepath.Join("mgnify", "mgy_clusters_2018_12.fa"),
	"bfd_database_path":        filepath.Join("bfd", "bfd_metaclust_clu_complete_id30_c90_final_seq.sorted_opt"),
	"uniclust30_database_path": filepath.Join("uniclust30", "uniclust30_2018_08", "uniclust30_2018_08"),
	"small_bfd_database_path":  filepath.Join("small_bfd", "bfd-first_non_consensus_sequences.fasta"),
	"pdb70_database_path":      filepath.Join("pdb70", "pdb70"),
	"pdb_seqres_database_path": filepath.Join("pdb_seqres", "pdb_seqres.txt"),
	"obsolete_pdbs_path":       filepath.Join("pdb_mmcif", "obsolete.dat"),
}

// SetDefaults registers the defaults and the environment overrides on v
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadSettings merges a YAML (or any viper supported) settings file into v
func ReadSettings(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	return nil
}

// Load returns a Config populated by v, with database paths not set
// explicitly derived from data_dir, and validates it
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if c.DataDir != "" {
		for key, rel := range layout {
			if v.GetString(key) == "" {
				*c.pathField(key) = filepath.Join(c.DataDir, rel)
			}
		}
	}
	c.UseSmallBFD = c.DBPreset == ReducedDBs

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	cutoff, err := time.Parse(time.DateOnly, c.MaxTemplateDate)
	if err != nil {
		return nil, fmt.Errorf("invalid max_template_date: %w", err)
	}
	c.TemplateCutoff = cutoff
	return &c, nil
}

// NewConfig returns a new Config struct populated by the global
// Viper settings (from a settings file, the environment and command
// line arguments)
func NewConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// pathField maps a database key of layout to its field
func (c *Config) pathField(key string) *string {
	switch key {
	case "uniref90_database_path":
		return &c.Uniref90DatabasePath
	case "mgnify_database_path":
		return &c.MgnifyDatabasePath
	case "bfd_database_path":
		return &c.BFDDatabasePath
	case "uniclust30_database_path":
		return &c.UniclustDatabasePath
	case "small_bfd_database_path":
		return &c.SmallBFDDatabasePath
	case "pdb70_database_path":
		return &c.PDB70DatabasePath
	case "pdb_seqres_database_path":
		return &c.PDBSeqresDatabasePath
	case "obsolete_pdbs_path":
		return &c.ObsoletePDBsPath
	}
	panic("config: no field for " + key)
}

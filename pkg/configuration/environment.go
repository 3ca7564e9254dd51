package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/heartware/timetable-sync/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory, falling back to the
// nearest directory that holds a go.mod when none of them exist locally.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := existing(envFiles, "")
	if len(existingFiles) == 0 {
		if root := moduleRoot(); root != "" {
			existingFiles = existing(envFiles, root)
		}
	}
	if len(existingFiles) == 0 {
		return 0, nil
	}
	return len(existingFiles), godotenv.Load(existingFiles...)
}

func existing(files []string, dir string) []string {
	out := make([]string, 0, len(files))
	for _, file := range files {
		path := file
		if dir != "" && !filepath.IsAbs(file) {
			path = filepath.Join(dir, file)
		}
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"timetable"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// ImportOptions holds pipeline defaults. CLI flags override individual fields.
type ImportOptions struct {
	TrackFilter    string `env:"IMPORT_TRACK_FILTER" envDefault:"일반계"`
	AuthorityScope string `env:"IMPORT_AUTHORITY_SCOPE"`
	BatchSize      int    `env:"IMPORT_BATCH_SIZE" envDefault:"1000" validate:"gte=1,lte=100000"`
	WeekdaySource  string `env:"IMPORT_WEEKDAY_SOURCE" envDefault:"filename" validate:"oneof=filename date_column"`
	SchoolDaysOnly bool   `env:"IMPORT_SCHOOL_DAYS_ONLY" envDefault:"true"`
	MaxPeriods     int    `env:"IMPORT_MAX_PERIODS" envDefault:"7" validate:"gte=1,lte=15"`
	Grades         []int  `env:"IMPORT_GRADES" envSeparator:"," validate:"dive,gte=1,lte=12"`
	ClassConflict  string `env:"IMPORT_CLASS_CONFLICT" envDefault:"ignore" validate:"oneof=ignore update"`
	OnChunkError   string `env:"IMPORT_ON_CHUNK_ERROR" envDefault:"abort" validate:"oneof=abort continue"`
	AmbiguousMatch string `env:"IMPORT_AMBIGUOUS_MATCH" envDefault:"reject" validate:"oneof=reject first"`
}

type Configuration struct {
	Database DatabaseOptions
	Import   ImportOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error" validate:"oneof=silent error warn info debug"`
	LogPath          string `env:"LOG_PATH"`
	MetricsTextfile  string `env:"METRICS_TEXTFILE"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	return logging.ParseLevel(c.LogLevel)
}

func Use() *Configuration {
	return singleton()
}

// Load parses a fresh configuration without touching the process-wide singleton.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

func (c *Configuration) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Import.TrackFilter = strings.TrimSpace(c.Import.TrackFilter)
	c.Import.AuthorityScope = strings.ToUpper(strings.TrimSpace(c.Import.AuthorityScope))
	c.Import.WeekdaySource = strings.ToLower(strings.TrimSpace(c.Import.WeekdaySource))
	c.Import.ClassConflict = strings.ToLower(strings.TrimSpace(c.Import.ClassConflict))
	c.Import.OnChunkError = strings.ToLower(strings.TrimSpace(c.Import.OnChunkError))
	c.Import.AmbiguousMatch = strings.ToLower(strings.TrimSpace(c.Import.AmbiguousMatch))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks enum and range options after flags have been applied.
func (c *Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}

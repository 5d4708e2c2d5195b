// Package config loads the release pipeline configuration.
//
// All paths and names the pipeline relies on live in an explicit immutable
// Config value threaded through the stages, never in package globals, so
// tests can run against throwaway roots.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/relpack/internal/errors"
)

// Config represents the pipeline configuration.
type Config struct {
	Product   ProductConfig   `yaml:"product"`
	Build     BuildConfig     `yaml:"build"`
	Toolchain ToolchainConfig `yaml:"toolchain"`
	Signing   SigningConfig   `yaml:"signing"`
}

// ProductConfig names the shipped product.
type ProductConfig struct {
	// Name is the distributable product name used in archive entries and
	// artifact filenames.
	Name string `yaml:"name"`
	// Package is the compiler-level package name; the toolchain writes its
	// output binary under this name. Defaults to Name.
	Package string `yaml:"package,omitempty"`
}

// BuildConfig holds the filesystem roots the pipeline reads and writes.
type BuildConfig struct {
	// Root is the compiler toolchain's output root (target/<triple>/<mode>).
	Root string `yaml:"root"`
	// StagingRoot receives staged binaries under <staging_root>/bin.
	StagingRoot string `yaml:"staging_root"`
	// DistDir receives final archives and checksum sidecars.
	DistDir string `yaml:"dist_dir"`
	// ExtraFiles are optional files shipped alongside the binary when they
	// exist on disk at packaging time; missing ones are silently omitted.
	ExtraFiles []string `yaml:"extra_files,omitempty"`
}

// ToolchainConfig describes the external compiler invocation.
type ToolchainConfig struct {
	Command   string   `yaml:"command"`
	ExtraArgs []string `yaml:"extra_args,omitempty"`
}

// SigningConfig holds non-secret signing parameters. Credentials are never
// read from the config file; they come from the environment per invocation.
type SigningConfig struct {
	TimestampURL string `yaml:"timestamp_url"`
	// DigestAlgorithm is used for both the file digest and the timestamp
	// digest on Windows.
	DigestAlgorithm string `yaml:"digest_algorithm"`
}

// DefaultExtraFiles are the conventional license and readme names shipped
// with every archive when present.
var DefaultExtraFiles = []string{"LICENSE.MIT", "LICENSE.APACHE", "README.md"}

// Load loads configuration from the specified file. A missing file yields
// the defaults rather than an error so the tool works inside any checkout
// without ceremony.
func Load(configPath string) (*Config, error) {
	// Load .env before expansion so signing credentials and overrides
	// supplied there are visible. Absence is fine.
	loadEnvFiles()

	cfg := &Config{}
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindConfig, "failed to read config file %s", configPath)
		}
		// Expand environment variables in the YAML content.
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, errors.Wrapf(err, errors.KindConfig, "failed to unmarshal config %s", configPath)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Product.Name == "" {
		c.Product.Name = "qchat"
	}
	if c.Product.Package == "" {
		c.Product.Package = c.Product.Name
	}
	if c.Build.Root == "" {
		c.Build.Root = "target"
	}
	if c.Build.StagingRoot == "" {
		c.Build.StagingRoot = "build"
	}
	if c.Build.DistDir == "" {
		c.Build.DistDir = "dist"
	}
	if len(c.Build.ExtraFiles) == 0 {
		c.Build.ExtraFiles = append([]string(nil), DefaultExtraFiles...)
	}
	if c.Toolchain.Command == "" {
		c.Toolchain.Command = "cargo"
	}
	if c.Signing.TimestampURL == "" {
		c.Signing.TimestampURL = "http://timestamp.digicert.com"
	}
	if c.Signing.DigestAlgorithm == "" {
		c.Signing.DigestAlgorithm = "sha256"
	}
}

// StagingBinDir returns the staged-binary directory.
func (c *Config) StagingBinDir() string {
	return filepath.Join(c.Build.StagingRoot, "bin")
}

// loadEnvFiles loads environment variables from the conventional dotenv
// files. Values already present in the environment win.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err == nil {
			fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", envPath)
			return
		}
	}
}

// Init writes a commented default configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.Newf(errors.KindConfig, "configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Product: ProductConfig{Name: "qchat"},
		Build: BuildConfig{
			Root:        "target",
			StagingRoot: "build",
			DistDir:     "dist",
			ExtraFiles:  append([]string(nil), DefaultExtraFiles...),
		},
		Toolchain: ToolchainConfig{Command: "cargo"},
		Signing: SigningConfig{
			TimestampURL:    "http://timestamp.digicert.com",
			DigestAlgorithm: "sha256",
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.Wrap(err, errors.KindConfig, "failed to marshal config")
	}

	header := "# relpack configuration.\n# Signing credentials are never read from this file; supply them via the\n# environment (RELPACK_SIGN_CERT, RELPACK_SIGN_CERT_PASSWORD, ...).\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o644); err != nil {
		return errors.Wrapf(err, errors.KindConfig, "failed to write config file %s", configPath)
	}
	return nil
}

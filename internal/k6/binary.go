package k6

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// wellKnownPaths covers the usual install locations when k6 is not on PATH.
var wellKnownPaths = []string{
	"/opt/homebrew/bin/k6",
	"/usr/local/bin/k6",
	"/usr/bin/k6",
}

// FindBinary resolves the k6 binary. A configured path wins when it points
// at an executable file, then PATH lookup, then the well-known locations.
// Falls back to the bare name "k6" so the spawn error surfaces at run time.
func FindBinary(configured string) string {
	if configured != "" {
		if isExecutable(configured) {
			log.Info().Str("path", configured).Msg("using configured k6 binary")
			return configured
		}
		log.Warn().Str("path", configured).Msg("configured k6 path missing or not executable")
	}

	if path, err := exec.LookPath("k6"); err == nil {
		log.Info().Str("path", path).Msg("found k6 on PATH")
		return path
	}

	for _, path := range wellKnownPaths {
		if isExecutable(path) {
			log.Info().Str("path", path).Msg("found k6")
			return path
		}
	}

	log.Warn().Msg("k6 not found, falling back to bare binary name")
	return "k6"
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

// Probe runs "k6 version" to confirm the binary works. The result is
// advisory: callers log the error and continue, execution will report its
// own spawn failure if the binary is truly absent.
func Probe(ctx context.Context, binary string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "version").CombinedOutput()
	if err != nil {
		return err
	}
	log.Info().Str("version", strings.TrimSpace(string(out))).Msg("k6 available")
	return nil
}

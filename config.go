package pwmake

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

const configFile = ".pwmake.toml"

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadUserFlags reads flag defaults from '.pwmake.toml' in the working
// directory, falling back to 'pwmake/pwmake.toml' in the user config dir.
// A missing config file is not an error.
func LoadUserFlags() (UserFlags, error) {
	var u UserFlags
	path := configFile
	if !exists(path) {
		path = filepath.Join(xdg.ConfigHome, "pwmake", "pwmake.toml")
		if !exists(path) {
			return u, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return u, err
	}
	if err := toml.Unmarshal(data, &u); err != nil {
		return u, fmt.Errorf("%s: %w", path, err)
	}
	return u, nil
}

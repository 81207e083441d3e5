package utils

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// return left of digest, e.g. "sha256:f85340bf132ae1"
func ShortDigest(input string) string {
	return lo.Substring(input, 0, 19)
}

// return true if input string is one of 1, t, true, on, yes
func ToBool(input string) bool {
	input = strings.TrimSpace(input)
	input = strings.ToLower(input)

	return lo.Contains([]string{"1", "t", "true", "on", "yes"}, input)
}

// return function (closure) thats returns the <prefix>_<name> envvar if it exists, else the default value
func EnvOrDefaultFunc(prefix, envfile string) func(string, string) string {

	// load .env if it exists
	err := godotenv.Load(envfile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Println("error", err)
			log.Fatal("Error loading .env file")
		}
	}

	return func(name, defval string) string {
		key := strings.ToUpper(prefix + "_" + name)
		val := os.Getenv(key)
		if val != "" {
			return val
		}
		return defval
	}
}

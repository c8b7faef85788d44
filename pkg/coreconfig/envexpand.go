package coreconfig

import "os"

// ExpandEnv expands ${VAR} and $VAR references in YAML content using the
// standard library's shell-style expansion, matching the teacher's
// pkg/config/envexpand.go. Missing variables expand to the empty string;
// validation catches any required field left empty by that.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

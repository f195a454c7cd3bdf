// Package testing is blank-imported by package tests:
//
//	import (
//	  _ "liyu1981.xyz/energy-monitor-service/pkg/testing"
//	)
//
// It moves the working directory to the module root, so fixture paths resolve
// the same way from every package, and sends log files to a scratch directory.
package testing

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
)

const logDirEnv = "IOT_LOG_DIR"

func init() {
	_, filename, _, _ := runtime.Caller(0)
	root := path.Join(path.Dir(filename), "..", "..")
	if err := os.Chdir(root); err != nil {
		panic(err)
	}

	if _, found := os.LookupEnv(logDirEnv); !found {
		_ = os.Setenv(logDirEnv, filepath.Join(os.TempDir(), "energy-monitor-test-logs"))
	}
}

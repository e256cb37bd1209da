package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process logger. It is usable before Init with logrus defaults.
var Log = logrus.New()

// Init configures Log for the given environment and level name.
func Init(env, level string) {
	Log.SetOutput(os.Stdout)

	if strings.EqualFold(env, "production") {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.WithField("level", level).Warn("unknown log level, falling back to info")
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

// ForUser returns an entry pre-tagged with the user id.
func ForUser(userID uint) *logrus.Entry {
	return Log.WithField("user_id", userID)
}

package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

type Entry = logrus.Entry

type Fields = logrus.Fields

// Init configures the shared logger: JSON to stdout, debug level when DEBUG=true.
func Init() {
	InitWithOutput(os.Stdout)
}

// InitWithOutput is Init with a custom destination. The watch command logs to stderr so
// that its terminal output stays readable.
func InitWithOutput(out io.Writer) {
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	Log.SetOutput(out)

	if strings.EqualFold(os.Getenv("DEBUG"), "true") {
		Log.SetLevel(logrus.DebugLevel)
	} else {
		Log.SetLevel(logrus.InfoLevel)
	}
}

// Component returns an entry tagged with the component name.
func Component(name string) *Entry {
	return Log.WithField("component", name)
}

package logger

import (
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger *zap.SugaredLogger

func Init(dev bool) {

	if dev {
		cfg := zap.NewDevelopmentConfig()
		UpdateLogger(&cfg)
	} else {
		cfg := zap.NewProductionConfig()
		UpdateLogger(&cfg)
	}

}

// InitWithLevel initializes the logger like Init and then applies the given
// level name ("debug", "info", "warn", "error"). Unknown names keep the
// config default.
func InitWithLevel(dev bool, level string) {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	UpdateLogger(&cfg)
}

func UpdateLogger(config *zap.Config) {
	defaultConfig := zap.NewProductionConfig()
	defaultConfig.OutputPaths = []string{"databrowser.log"}
	if config == nil {
		config = &defaultConfig
	}

	logger, err := config.Build()
	if err != nil {
		log.Print(err)
		return
	}

	Logger = logger.Sugar()
	Info("DataBrowser Logger initialized")
}

// Sync flushes buffered log entries.
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

func Info(template string, args ...interface{}) {
	if Logger == nil {
		log.Printf(template, args...)
		return
	}
	Logger.Infow(fmt.Sprintf(template, args...), "process_id", os.Getpid())
}

func Warn(template string, args ...interface{}) {
	if Logger == nil {
		log.Printf(template, args...)
		return
	}
	Logger.Warnw(fmt.Sprintf(template, args...), "process_id", os.Getpid())
}

func Error(template string, args ...interface{}) {
	if Logger == nil {
		log.Printf(template, args...)
		return
	}
	Logger.Errorw(fmt.Sprintf(template, args...), "process_id", os.Getpid())
}

// Debug logs at debug level. Before Init there is no level to check, so
// the message is dropped rather than sent to the standard logger.
func Debug(template string, args ...interface{}) {
	if Logger == nil {
		return
	}
	Logger.Debugw(fmt.Sprintf(template, args...), "process_id", os.Getpid())
}

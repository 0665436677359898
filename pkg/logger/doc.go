// Package logger provides the structured logging interface used across knbackup.
//
// It wraps zerolog with a small interface so components can be handed a
// logger (or a TestLogger in tests) instead of reaching for a global:
//
//	log := logger.ForStage(logger.GetLogger(), logger.StageReport).
//	    WithField("child", child.Name)
//	log.InfoWithFields("page fetched", map[string]interface{}{
//	    "page":    3,
//	    "reports": 20,
//	})
//
// Console output is human readable and colored only on a terminal. When
// LoggingConfig.File is set, JSON lines are also written to that file and
// rotated according to MaxSize, MaxBackups, MaxAge and Compress.
package logger

package goroutine

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync/atomic"
)

// Logger интерфейс для логирования паник.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах.
type RecoveryHandler struct {
	logger Logger
}

// NewRecoveryHandler создает новый обработчик.
func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic.
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				rh.logger.Errorf("panic in goroutine: %v\nstack trace:\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// stderrLogger пишет в stderr до подключения основного логгера.
type stderrLogger struct{}

func (stderrLogger) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
}

var defaultHandler atomic.Pointer[RecoveryHandler]

func init() {
	defaultHandler.Store(NewRecoveryHandler(stderrLogger{}))
}

// SetLogger подменяет логгер глобального обработчика.
func SetLogger(logger Logger) {
	defaultHandler.Store(NewRecoveryHandler(logger))
}

// SafeGo запускает горутину через глобальный обработчик.
func SafeGo(fn func()) {
	defaultHandler.Load().SafeGo(fn)
}

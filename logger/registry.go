package logger

import "sync"

// named holds loggers registered per adapter or client instance.
var named sync.Map

// Register stores l under name, replacing any earlier entry.
func Register(name string, l *Logger) { named.Store(name, l) }

// Unregister removes the logger stored under name.
func Unregister(name string) { named.Delete(name) }

// Get returns the logger registered under name, or the global logger tagged
// with name as its component.
func Get(name string) *Logger {
	if l, ok := named.Load(name); ok {
		return l.(*Logger)
	}
	return WithComponent(name)
}

package infra

import (
	"context"
	"log"
	"time"
)

// LogAlerter reporta requests lentas no logger padrão.
// Serve como sink de alerta quando não há integração externa configurada.
type LogAlerter struct {
	// Logger permite injetar um logger próprio; nil usa o logger padrão.
	Logger *log.Logger
}

func (a LogAlerter) ReportSlowRequest(_ context.Context, method, path string, d time.Duration) {
	if a.Logger != nil {
		a.Logger.Printf("slow request: %s %s took %s", method, path, d)
		return
	}
	log.Printf("slow request: %s %s took %s", method, path, d)
}

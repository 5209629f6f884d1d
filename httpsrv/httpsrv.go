// A small wrapper around net/http serving so the daemon's lifecycle is in one place: start on
// a goroutine, stop on demand with a bounded graceful shutdown.

package httpsrv

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chance-nelson/jobstats-db/common"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	port   int
	failed func(error)
	stop   chan bool
	server *http.Server
}

// New creates a server that will listen on port and serve handler.  The server is not started.
// If it ever exits with an error, failed is called.
func New(port int, handler http.Handler, failed func(error)) *Server {
	return &Server{
		port:   port,
		failed: failed,
		stop:   make(chan bool),
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
		},
	}
}

// Start blocks the current goroutine until the server exits, so typical usage is `go s.Start()`
// followed eventually by s.Stop().
func (s *Server) Start() {
	common.Log.Infof("Listening on port %d", s.port)
	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		common.Log.Errorf("SERVER NOT RUNNING: %v", err)
		if s.failed != nil {
			s.failed(err)
		}
	}
	s.stop <- true
}

// Stop shuts the server down, waiting a bounded time for in-flight requests, then waits for
// Start to return.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		common.Log.Warningf("Shutdown: %v", err)
	}
	<-s.stop
}

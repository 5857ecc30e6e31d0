// Package server serves the text query protocol over TCP, optionally with TLS. Each connection
// carries one request and its response.
package server

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	serverName            = "LiteTable Query Server"
	defaultMaxConnections = 100
)

type handler interface {
	Handle(conn net.Conn)
}

type Server struct {
	listener net.Listener
	handler  handler

	// configuration for handling connections
	maxConnections int
	connSemaphore  chan struct{}
	activeConns    sync.WaitGroup
	done           chan struct{}
}

type Config struct {
	Address string
	Port    int
	Handler handler
	// Certificate enables TLS.
	Certificate    *tls.Certificate
	MaxConnections int
	// Listener replaces the listener on Address and Port when set.
	Listener net.Listener
}

func (c *Config) validate() error {
	var errGrp []error

	if c.Listener == nil && (c.Port <= 0 || c.Port > 65535) {
		errGrp = append(errGrp, errors.New("port must be between 1 and 65535"))
	}
	if c.Handler == nil {
		errGrp = append(errGrp, errors.New("handler is required"))
	}
	if c.MaxConnections < 0 {
		errGrp = append(errGrp, errors.New("max connections cannot be negative"))
	}

	return errors.Join(errGrp...)
}

// New returns a new query server listening on the configured address.
func New(cfg *Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	listener := cfg.Listener
	if listener == nil {
		var err error
		address := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
		if cfg.Certificate != nil {
			tlsConfig := &tls.Config{
				Certificates: []tls.Certificate{*cfg.Certificate},
				MinVersion:   tls.VersionTLS12,
			}
			listener, err = tls.Listen("tcp", address, tlsConfig)
		} else {
			listener, err = net.Listen("tcp", address)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create listener: %w", err)
		}
	}

	maxConns := cfg.MaxConnections
	if maxConns == 0 {
		maxConns = defaultMaxConnections
	}

	return &Server{
		listener:       listener,
		handler:        cfg.Handler,
		maxConnections: maxConns,
		connSemaphore:  make(chan struct{}, maxConns),
		done:           make(chan struct{}),
	}, nil
}

// Start accepts connections in the background until Stop is called.
func (s *Server) Start() error {
	log.Info().Msgf("query server listening at %s", s.listener.Addr())
	go s.serve()
	return nil
}

func (s *Server) serve() {
	defer close(s.done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Error().Err(err).Msg("query server stopped accepting connections")
			}
			return
		}
		remoteAddr := conn.RemoteAddr().String()

		// Try to acquire a connection slot
		select {
		case s.connSemaphore <- struct{}{}:
			s.activeConns.Add(1)
			go func() {
				defer func() {
					<-s.connSemaphore
					s.activeConns.Done()
				}()

				log.Debug().Msgf("Handling connection from: %s", remoteAddr)
				s.handler.Handle(conn)
			}()
		default:
			_ = conn.Close()
			log.Warn().Msgf("Rejected connection from %s: max connections reached", remoteAddr)
		}
	}
}

// Stop will stop the server from accepting new connections and wait for the open ones.
func (s *Server) Stop() error {
	err := s.listener.Close()
	<-s.done
	s.activeConns.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Name returns the name of the server.
func (s *Server) Name() string {
	return serverName
}

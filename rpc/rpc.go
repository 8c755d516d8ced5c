package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/gridserver/logger"
)

// Server manages the admin RPC listener.
type Server struct {
	listener  net.Listener
	address   string
	rpcServer *rpc.Server
}

// NewServer listens on addr and registers the admin service under the name "Admin".
func NewServer(addr string, admin *AdminService) (*Server, error) {
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Admin", admin); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener:  listener,
		address:   listener.Addr().String(),
		rpcServer: rpcServer,
	}, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.address
}

// Start begins accepting RPC connections. It blocks until Stop is called.
func (s *Server) Start() error {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return nil
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpcServer.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

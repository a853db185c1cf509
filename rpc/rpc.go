package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"sync"
	"time"

	"github.com/wfunc/nightwatch/logger"
	"github.com/wfunc/nightwatch/models"
	"github.com/wfunc/nightwatch/room"
)

var ErrStatsUnavailable = errors.New("player statistics are not available")

// StatusProvider is implemented by room.Room.
type StatusProvider interface {
	Status() room.Status
}

// StatsProvider is implemented by services.PlayerService.
type StatsProvider interface {
	GetPlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error)
}

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	server   *rpc.Server
	address  string
	wg       sync.WaitGroup
}

// NewServer listens on addr and registers the given receivers on a private rpc.Server.
func NewServer(addr string, receivers ...interface{}) (*Server, error) {
	server := rpc.NewServer()
	for _, rcvr := range receivers {
		if err := server.Register(rcvr); err != nil {
			return nil, err
		}
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		server:   server,
		address:  listener.Addr().String(),
	}, nil
}

func (s *Server) Addr() string { return s.address }

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.server.ServeConn(conn)
		}()
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// StatusService exposes the session status and player statistics.
type StatusService struct {
	status  StatusProvider
	stats   StatsProvider
	timeout time.Duration
}

func NewStatusService(status StatusProvider, stats StatsProvider) *StatusService {
	return &StatusService{status: status, stats: stats, timeout: 5 * time.Second}
}

// StatusArgs names the caller for the server log.
type StatusArgs struct {
	Caller string
}

type StatusReply struct {
	Status room.Status
}

// Status follows the net/rpc signature: exported args, pointer reply, error return.
func (s *StatusService) Status(args *StatusArgs, reply *StatusReply) error {
	logger.Log.Debugw("Status requested", "caller", args.Caller)
	reply.Status = s.status.Status()
	return nil
}

type PlayerStatsArgs struct {
	PlayerID string
}

type PlayerStatsReply struct {
	Stats models.PlayerStats
}

func (s *StatusService) PlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	if s.stats == nil {
		return ErrStatsUnavailable
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	stats, err := s.stats.GetPlayerStats(ctx, args.PlayerID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}

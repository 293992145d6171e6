// Package server exposes a session over a line-oriented TCP protocol: one
// SQL statement per line, replies terminated by a sentinel line, grounded on
// the reference server's Framed/LinesCodec request loop.
package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kvsql/kvsql/exec"
	"github.com/kvsql/kvsql/mvcc"
	"github.com/kvsql/kvsql/session"
)

// Sentinel terminates every response, success or error, so a client can tell
// where one statement's output ends without a length prefix.
const Sentinel = "!!!THIS IS THE END!!!"

// Server accepts connections and binds one Session per connection.
type Server struct {
	engine *mvcc.MVCC
}

// New wraps engine for serving.
func New(engine *mvcc.MVCC) *Server {
	return &Server{engine: engine}
}

// ListenAndServe binds addr and serves connections until ctx is canceled or
// the listener fails. It always returns a non-nil error (net.Listener.Close
// surfaces as the eventual Accept error on cancellation).
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	zap.S().Infow("listening", "addr", addr)
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled or Accept fails.
// Split out from ListenAndServe so callers that need the bound address
// before serving (tests picking an ephemeral port) can listen themselves.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	group.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return err
			}
			go s.handleConn(ctx, conn)
		}
	})
	return group.Wait()
}

// handleConn runs until the client closes the connection or a read fails,
// rolling back any transaction still open at that point (covers both a
// graceful client ROLLBACK and an ungraceful socket closure mid-transaction).
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	sess := session.New(s.engine)
	defer func() {
		if err := sess.Close(); err != nil {
			zap.S().Errorw("rollback on connection close failed", "error", err)
		}
	}()

	remote := conn.RemoteAddr().String()
	zap.S().Infow("connection opened", "remote", remote)
	defer zap.S().Infow("connection closed", "remote", remote)

	scanner := bufio.NewScanner(conn)
	w := bufio.NewWriter(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.handleLine(sess, w, line)
		if err := w.Flush(); err != nil {
			zap.S().Warnw("write to client failed", "remote", remote, "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		zap.S().Warnw("read from client failed", "remote", remote, "error", err)
	}
}

func (s *Server) handleLine(sess *session.Session, w *bufio.Writer, line string) {
	rs, err := sess.Execute(line)
	if err != nil {
		fmt.Fprintln(w, err.Error())
		fmt.Fprintln(w, Sentinel)
		return
	}
	fmt.Fprintln(w, exec.Render(rs))
	fmt.Fprintln(w, Sentinel)
}

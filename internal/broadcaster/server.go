package broadcaster

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"lobsim/internal/config"
	"lobsim/internal/sampler"
	"lobsim/internal/utils"
)

const writeTimeout = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server serves /health and /ws over HTTP, upgrading /ws connections to
// websockets and registering each as a Hub subscriber. An upgrade request
// that arrives while max_subscribers are already registered is refused
// with 503 before the handshake. Upgraded connections are handed to a
// WorkerPool with max_subscribers workers, each running one subscriber
// session; connections beyond that wait in the pool's queue.
type Server struct {
	hub      *Hub
	sampler  *sampler.Sampler
	cfg      config.BroadcastConfig
	tickSize float64
	pool     utils.WorkerPool

	httpServer *http.Server
}

func NewServer(cfg config.BroadcastConfig, tickSize float64, smp *sampler.Sampler) *Server {
	s := &Server{
		hub:      NewHub(int(cfg.MaxSubscribers)),
		sampler:  smp,
		cfg:      cfg,
		tickSize: tickSize,
		pool:     utils.NewWorkerPool(int(cfg.MaxSubscribers)),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleUpgrade)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)

	s.httpServer = &http.Server{
		Addr:    addr(cfg),
		Handler: handler,
	}
	return s
}

// Hub exposes the subscriber registry so the simulation's sample ticker
// can publish into it directly.
func (s *Server) Hub() *Hub { return s.hub }

func addr(cfg config.BroadcastConfig) string {
	return cfg.Host + ":" + itoa(cfg.Port)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.hub.Count() >= int(s.cfg.MaxSubscribers) {
		http.Error(w, ErrHubFull.Error(), http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.pool.AddTask(conn)
}

// Run starts the HTTP listener and the subscriber worker pool under a
// shared tomb, blocking until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	t, ctx := tomb.WithContext(ctx)

	t.Go(func() error {
		s.pool.Setup(t, s.handleSubscriber)
		return nil
	})

	t.Go(func() error {
		log.Info().Str("addr", s.httpServer.Addr).Msg("broadcaster listening")
		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	t.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return t.Wait()
}

// handleSubscriber is the WorkerPool task body: it registers one
// connection as a subscriber, pumps its mailbox to the wire until the
// connection dies or the tomb is, then unregisters.
func (s *Server) handleSubscriber(t *tomb.Tomb, task any) error {
	conn, ok := task.(*websocket.Conn)
	if !ok {
		return nil
	}
	defer conn.Close()

	sub, err := s.hub.register()
	if err != nil {
		log.Warn().Err(err).Msg("rejecting subscriber: pool full")
		_ = conn.WriteControl(websocket.ClosePolicyViolation, nil, time.Now().Add(writeTimeout))
		return nil
	}
	defer s.hub.unregister(sub)

	// Drain the read side so the connection's close/ping control frames
	// are processed; subscribers never send application data.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.wake <- struct{}{}
				return
			}
		}
	}()

	for {
		select {
		case <-t.Dying():
			return nil
		case <-sub.wake:
			snap := sub.mailbox.Load()
			if snap == nil {
				continue
			}
			payload, err := Encode(*snap, s.tickSize)
			if err != nil {
				log.Error().Err(err).Msg("encode snapshot")
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
				return nil
			}
		}
	}
}

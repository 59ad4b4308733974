// Command server is the reactorkv entrypoint: it wires
// config → TLS → router → reactor → KV (spec.md §6).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/trappedfunction/reactorkv/internal/config"
	"github.com/trappedfunction/reactorkv/internal/httpedge"
	"github.com/trappedfunction/reactorkv/internal/kv"
	"github.com/trappedfunction/reactorkv/internal/logging"
	"github.com/trappedfunction/reactorkv/internal/reactor"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code: 0 on orderly shutdown, 1 on a
// fatal startup error (spec.md §6).
func run() int {
	path := config.DefaultPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reactorkv: %v\n", err)
		return 1
	}

	level, err := logging.ParseLevel(cfg.Logging.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log := logging.New(level, 1024)
	defer log.Close()

	dataDir := "data"
	engine, err := kv.Open(dataDir)
	if err != nil {
		log.Error("failed to open KV engine", logrus.Fields{"dir": dataDir, "error": err})
		return 1
	}
	defer engine.Close()

	router := httpedge.NewRouter()
	handlers := defaultHandlers(engine)
	for _, rt := range cfg.Routes {
		handler, ok := handlers[rt.HandlerName]
		if !ok {
			log.Warn("unknown handler name in [routes]", logrus.Fields{"handler_name": rt.HandlerName})
			continue
		}
		if err := router.Register(rt.Method, rt.Pattern, handler); err != nil {
			log.Error("route registration failed", logrus.Fields{"error": err})
			return 1
		}
	}
	router.Freeze()

	mainLoop, err := reactor.NewEventLoop()
	if err != nil {
		log.Error("failed to create main loop", logrus.Fields{"error": err})
		return 1
	}

	pool := reactor.NewEventLoopThreadPool(mainLoop)
	if err := pool.Start(cfg.Server.Threads); err != nil {
		log.Error("failed to start worker pool", logrus.Fields{"error": err})
		return 1
	}

	srv, err := reactor.NewServer(mainLoop, pool, cfg.Server.HTTPPort, nil)
	if err != nil {
		log.Error("failed to create server", logrus.Fields{"error": err})
		return 1
	}
	srv.SetMessageCallback(httpHandler(router, log, srv))
	srv.Start()

	var tlsSrv *reactor.Server
	if cfg.Server.EnableSSL {
		tlsCtx, err := reactor.NewTLSContext(cfg.SSL.CertPath, cfg.SSL.KeyPath)
		if err != nil {
			log.Error("failed to load TLS context", logrus.Fields{"error": err})
			return 1
		}
		tlsSrv, err = reactor.NewServer(mainLoop, pool, cfg.Server.HTTPSPort, tlsCtx)
		if err != nil {
			log.Error("failed to create TLS server", logrus.Fields{"error": err})
			return 1
		}
		tlsSrv.SetMessageCallback(httpHandler(router, log, tlsSrv))
		tlsSrv.Start()
	}

	go waitForShutdown(mainLoop)

	log.Info("server started", logrus.Fields{"http_port": cfg.Server.HTTPPort})
	if err := mainLoop.Run(); err != nil {
		log.Error("main loop exited with error", logrus.Fields{"error": err})
		return 1
	}

	pool.Stop()
	return 0
}

func waitForShutdown(loop *reactor.EventLoop) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-sig
	loop.Quit()
}

func httpHandler(router *httpedge.Router, log *logging.Logger, srv *reactor.Server) reactor.MessageCallback {
	return func(conn *reactor.Connection) {
		data := conn.Input().Peek()
		req, consumed, err := httpedge.ParseRequest(data)
		if err != nil {
			conn.ForceClose()
			return
		}
		if req == nil {
			return // incomplete request, wait for more bytes
		}
		conn.Input().Retrieve(consumed)

		resp := router.Dispatch(req)
		if resp == nil {
			resp = &httpedge.Response{Status: 404, Headers: map[string]string{}, KeepAlive: true}
			resp.SetBody([]byte("not found"))
		}
		conn.Send(resp.Serialize())
		srv.RefreshIdleTimer(conn)
	}
}

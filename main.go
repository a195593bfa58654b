package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"LECS-backend/internal/checkout"
	"LECS-backend/internal/employees"
	"LECS-backend/internal/notify"
	"LECS-backend/internal/platform/db"
	"LECS-backend/internal/realtime"
	"LECS-backend/internal/scanner"
)

// ダッシュボード（EventSourceクライアント）を埋め込む
//
//go:embed public
var embedded embed.FS

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s storage:%s\n", mode, cfg.Storage)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}

	// ストレージ選択（mysql / memory）
	var (
		ledger   checkout.Ledger
		empStore employees.Store
	)
	switch cfg.Storage {
	case "mysql":
		conn, err := db.Connect(cfg.DB)
		if err != nil {
			panic(err)
		}
		defer conn.Close()
		log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)
		if err := db.EnsureSchema(context.Background(), conn); err != nil {
			panic(err)
		}
		ledger = checkout.NewMySQLLedger(conn)
		empStore = employees.NewMySQLStore(conn)
	case "memory":
		ledger = checkout.NewMemoryLedger()
		empStore = employees.NewMemoryStore(nil)
		log.Println("[WARN] storage=memory: データはプロセス終了で消える")
	default:
		panic(fmt.Sprintf("unknown storage: %s", cfg.Storage))
	}

	// イベントハブと各サービス
	hub := realtime.NewHub()
	defer hub.Close()

	empSvc := employees.NewService(empStore)
	checkoutSvc := checkout.NewService(ledger, hub, actorDirectory{svc: empSvc})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// /api/v2
	api := r.Group("/api/v2")
	checkout.RegisterRoutes(api, checkoutSvc)
	employees.RegisterRoutes(api, empSvc)
	realtime.RegisterRoutes(api, hub, func(ctx context.Context) (any, error) {
		return checkoutSvc.Snapshot(ctx)
	})

	// ダッシュボード静的配信
	registerStatic(r)

	// スキャナ読み取りループ（スーパーバイズドタスク）
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	var device *scanner.Device
	if cfg.Scanner.Enabled {
		device, err = scanner.OpenDevice(cfg.Scanner.Device)
		if err != nil {
			// スキャナなしでもWeb側は動かす
			log.Printf("[ERROR] scanner unavailable: %v", err)
		} else {
			loop := scanner.NewLoop(device, checkoutSvc, hub)
			go superviseScanLoop(loopCtx, loop)
		}
	}

	// 期限超過通知スイープ（mailgun設定がある場合のみ）
	if cfg.Mailgun.Domain != "" {
		interval := time.Hour
		if cfg.Mailgun.SweepInterval != "" {
			if d, err := time.ParseDuration(cfg.Mailgun.SweepInterval); err == nil {
				interval = d
			}
		}
		sender := notify.NewMailgunSender(cfg.Mailgun)
		sweeper := notify.NewSweeper(ledger, sender, emailDirectory{svc: empSvc}, interval)
		go sweeper.Run(loopCtx)
		log.Printf("[INFO] overdue sweep enabled (every %s)", interval)
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		var err error
		if cfg.Certificate.Cert != "" {
			certFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Cert)
			keyFile := fmt.Sprintf("config/tls/%s/%s", mode, cfg.Certificate.Key)
			log.Printf("[INFO] listening on https://%s", cfg.Addr)
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			log.Printf("[INFO] listening on http://%s", cfg.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown: 新規スキャンを止め、処理中のスキャンを
	// 済ませてからスキャナとHTTPを閉じる
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down...")

	stopLoop()
	if device != nil {
		// ReadKeyのブロックを解くのはClose
		_ = device.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}

// superviseScanLoop: ループの終了理由を種別で扱う。スキャナ断では
// ループだけ止めてプロセスは継続する（再起動は外部スーパーバイザ）。
func superviseScanLoop(ctx context.Context, loop *scanner.Loop) {
	err := loop.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		log.Println("[INFO] scan loop stopped")
	default:
		log.Printf("[ERROR] scan loop terminated: %v (web serving continues)", err)
	}
}

// registerStatic: 埋め込んだ public/ を配信し、なければ index.html へ
// フォールバックする（SPAの基本運用）
func registerStatic(r *gin.Engine) {
	sub, err := fs.Sub(embedded, "public")
	if err != nil {
		log.Fatal(err)
	}
	fileFS := http.FS(sub)

	r.NoRoute(func(c *gin.Context) {
		// API は対象外
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.Status(http.StatusNotFound)
			return
		}

		reqPath := strings.TrimPrefix(c.Request.URL.Path, "/")
		if reqPath == "" {
			reqPath = "index.html"
		}

		if f, err := fileFS.Open(reqPath); err == nil {
			defer f.Close()
			if ct := mime.TypeByExtension(path.Ext(reqPath)); ct != "" {
				c.Header("Content-Type", ct)
			}
			if !strings.HasSuffix(reqPath, "index.html") {
				c.Header("Cache-Control", "public, max-age=86400, immutable")
			}
			if fileInfo, err := f.Stat(); err == nil {
				http.ServeContent(c.Writer, c.Request, reqPath, fileInfo.ModTime(), f)
			} else {
				c.Status(http.StatusInternalServerError)
			}
			return
		}

		if idx, err := fileFS.Open("index.html"); err == nil {
			defer idx.Close()
			c.Header("Content-Type", "text/html; charset=utf-8")
			if fileInfo, err := idx.Stat(); err == nil {
				http.ServeContent(c.Writer, c.Request, "index.html", fileInfo.ModTime(), idx)
			} else {
				c.Status(http.StatusInternalServerError)
			}
			return
		}

		c.Status(http.StatusNotFound)
	})
}

// ---- ディレクトリアダプタ ----

type actorDirectory struct{ svc *employees.Service }

func (d actorDirectory) Resolve(ctx context.Context, id string) (checkout.ActorInfo, error) {
	e, err := d.svc.Resolve(ctx, id)
	if err != nil {
		return checkout.ActorInfo{}, err
	}
	return checkout.ActorInfo{Name: e.Name, Email: e.Email}, nil
}

type emailDirectory struct{ svc *employees.Service }

func (d emailDirectory) ResolveEmail(ctx context.Context, id string) (string, error) {
	e, err := d.svc.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	return e.Email, nil
}

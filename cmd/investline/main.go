package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/avetisov/investline/internal/app/config"
	"github.com/avetisov/investline/internal/app/handlers"
	"github.com/avetisov/investline/internal/app/logger"
	middlware "github.com/avetisov/investline/internal/app/middleware"
	"github.com/avetisov/investline/internal/app/repository"
	"github.com/avetisov/investline/internal/app/router"
	"github.com/avetisov/investline/internal/app/service"
	"github.com/avetisov/investline/internal/app/service/clients"
)

// @title           Swagger Docs for Investline API
// @version         1.0
// @description     This is the `investline` service. Users hold multi-wallet
// balances, purchase investment packages with daily-accrued returns and earn
// referral commissions over a five-level sponsor tree.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey  ApiKeyAuth
// @in header
// @name Authorization
func main() {
	// Server run context
	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	c := config.ParseFlags()
	logger.InitLogger(c.LogLevel)

	//setup repositories
	ts := service.NewTokenService(c)
	s := repository.NewDBStorage(c)
	ur := repository.NewUserRepository(s.DBConn)
	wr := repository.NewWalletRepository(s.DBConn)
	tr := repository.NewTransactionRepository(s.DBConn)
	inr := repository.NewIncomeRepository(s.DBConn)
	rr := repository.NewReferralRepository(s.DBConn)
	pr := repository.NewPackageRepository(s.DBConn)
	ivr := repository.NewInvestmentRepository(s.DBConn)
	rtr := repository.NewReturnRepository(s.DBConn)
	cr := repository.NewConfigRepository(s.DBConn)
	fqr := repository.NewFundRequestRepository(s.DBConn)

	//setup services
	ws := service.NewWalletService(wr, tr, inr)
	rs := service.NewReferralService(rr, ur)
	acs := service.NewAdminConfigService(cr, time.Duration(c.ConfigCacheTTLSec)*time.Second)
	cms := service.NewCommissionService(rr, ur, inr, ws, acs)
	ps := service.NewPackageService(pr)
	ivs := service.NewInvestmentService(ivr, pr, rtr, ur, ps, ws, cms, acs)
	as := service.NewAccrualService(ivr, rtr, ws, inr)
	fqs := service.NewFundRequestService(fqr, ur, ws, acs)
	us := service.NewUserService(ur, ws, rs)
	pc := clients.NewPriceClient(c)
	prs := service.NewPriceService(pc, time.Duration(c.PriceCacheTTLSec)*time.Second)

	// setup handlers
	uh := handlers.NewUserHandler(us, ts, ivs, c.ContextTimeoutSec)
	wh := handlers.NewWalletHandler(ws, c.ContextTimeoutSec)
	ph := handlers.NewPackagesHandler(ps, c.ContextTimeoutSec)
	ih := handlers.NewInvestmentsHandler(ivs, c.ContextTimeoutSec)
	th := handlers.NewTeamHandler(rs, c.ContextTimeoutSec)
	prh := handlers.NewPriceHandler(prs)
	fh := handlers.NewFundRequestsHandler(fqs, acs, c.ContextTimeoutSec)
	ah := handlers.NewAdminHandler(ps, ivs, as, acs, ws, c.ContextTimeoutSec)

	am := middlware.NewAuthMiddleware(ts, us, c.ContextTimeoutSec)

	r := router.NewAppRouter(uh, wh, ph, ih, th, prh, fh, ah, am)

	// Start the accrual goroutine
	ap := service.NewAccrualProcessor(as, time.Duration(c.AccrualIntervalSec)*time.Second)
	go ap.Run(serverCtx)

	// The HTTP Server
	server := &http.Server{Addr: c.ServerAddr, Handler: r}

	// Listen for syscall signals for process to interrupt/quit
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		// Shutdown signal with grace period of 30 seconds
		shutdownCtx, cancelFunc := context.WithTimeout(serverCtx, 30*time.Second)
		defer cancelFunc()
		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		// Trigger graceful shutdown
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	// Run the server
	fmt.Printf("Starting server on port %s...\n", strings.Split(c.ServerAddr, ":")[1])
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	// Wait for server context to be stopped
	<-serverCtx.Done()
}

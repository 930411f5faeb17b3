package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/avetisov/investline/internal/app/handlers"
	middlware "github.com/avetisov/investline/internal/app/middleware"
)

func NewAppRouter(uh *handlers.UserHandler, wh *handlers.WalletHandler, ph *handlers.PackagesHandler,
	ih *handlers.InvestmentsHandler, th *handlers.TeamHandler, prh *handlers.PriceHandler,
	fh *handlers.FundRequestsHandler, ah *handlers.AdminHandler, am middlware.AuthMiddleware) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middlware.RequestLogger)

	r.Post("/api/user/register", uh.Register)
	r.Post("/api/user/login", uh.Login)
	r.Get("/api/packages", ph.GetAvailable)
	r.Get("/api/packages/{packageID}", ph.GetByID)
	r.Get("/api/prices/{symbol}", prh.GetTicker)

	r.Group(func(r chi.Router) {
		r.Use(am.Authenticate)

		r.Get("/api/user/profile", uh.Profile)
		r.Get("/api/user/summary", uh.Summary)
		r.Get("/api/user/wallets", wh.GetBalances)
		r.Get("/api/user/transactions", wh.GetTransactions)
		r.Get("/api/user/incomes", wh.GetIncomes)
		r.Post("/api/user/investments", ih.Purchase)
		r.Get("/api/user/investments", ih.MyInvestments)
		r.Get("/api/user/returns", ih.MyReturns)
		r.Get("/api/user/team", th.Summary)
		r.Post("/api/user/deposits", fh.RequestDeposit)
		r.Post("/api/user/withdrawals", fh.RequestWithdrawal)
		r.Get("/api/user/requests", fh.MyRequests)
		r.Post("/api/user/requests/{requestID}/cancel", fh.Cancel)
		r.Get("/api/user/limits", fh.Limits)
	})

	r.Group(func(r chi.Router) {
		r.Use(am.Authenticate)
		r.Use(am.RequireAdmin)

		r.Get("/api/admin/packages", ah.GetAllPackages)
		r.Post("/api/admin/packages", ah.CreatePackage)
		r.Put("/api/admin/packages/{packageID}", ah.UpdatePackage)
		r.Delete("/api/admin/packages/{packageID}", ah.DeletePackage)
		r.Post("/api/admin/investments/{investmentID}/settle", ah.Settle)
		r.Post("/api/admin/investments/{investmentID}/mature", ah.ForceMature)
		r.Post("/api/admin/investments/{investmentID}/distribute", ah.ManualDistribute)
		r.Post("/api/admin/accrual/run", ah.RunAccrual)
		r.Get("/api/admin/analytics", ah.Analytics)
		r.Get("/api/admin/configs", ah.GetConfigs)
		r.Put("/api/admin/configs", ah.SetConfig)
		r.Post("/api/admin/transfers", ah.Transfer)
		r.Get("/api/admin/requests", fh.ListRequests)
		r.Post("/api/admin/requests/{requestID}/approve", fh.Approve)
		r.Post("/api/admin/requests/{requestID}/reject", fh.Reject)
	})
	return r
}

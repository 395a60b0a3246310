package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/shophub/internal/cart"
	"github.com/vasiliy-maslov/shophub/internal/config"
	"github.com/vasiliy-maslov/shophub/internal/handler"
	"github.com/vasiliy-maslov/shophub/internal/mail"
	"github.com/vasiliy-maslov/shophub/internal/order"
	"github.com/vasiliy-maslov/shophub/internal/payment"
	"github.com/vasiliy-maslov/shophub/internal/product"
	"github.com/vasiliy-maslov/shophub/internal/user"
)

func NewRouter(pool *pgxpool.Pool, cfg *config.Config) *chi.Mux {
	userSvc := user.NewService(user.NewRepository(pool))
	productSvc := product.NewService(product.NewRepository(pool))
	cartSvc := cart.NewService(cart.NewRepository(pool))

	verifier := payment.NewKhaltiClient(cfg.Khalti.GatewayURL, cfg.Khalti.SecretKey, cfg.Khalti.Timeout)
	mailer := mail.NewSMTPSender(cfg.SMTP)
	orderSvc := order.NewService(order.NewRepository(pool), productSvc, verifier, mailer, cfg.Pricing)

	userHandler := handler.NewUserHandler(userSvc)
	productHandler := handler.NewProductHandler(productSvc)
	cartHandler := handler.NewCartHandler(cartSvc)
	orderHandler := handler.NewOrderHandler(orderSvc)

	requireAuth := handler.RequireAuth(userSvc)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","message":"Shop Hub API is running"}`))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
		r.With(requireAuth).Get("/me", userHandler.Me)
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", productHandler.List)
		r.Get("/featured", productHandler.ListFeatured)
		r.Get("/{id}", productHandler.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/{id}/reviews", productHandler.CreateReview)

			r.Group(func(r chi.Router) {
				r.Use(handler.RequireAdmin)
				r.Post("/", productHandler.Create)
				r.Put("/{id}", productHandler.Update)
				r.Delete("/{id}", productHandler.Delete)
			})
		})
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", orderHandler.Create)
		r.Get("/myorders", orderHandler.GetMyOrders)
		r.Get("/{id}", orderHandler.GetByID)
		r.Post("/{id}/pay/khalti", orderHandler.PayWithKhalti)

		r.Group(func(r chi.Router) {
			r.Use(handler.RequireAdmin)
			r.Get("/", orderHandler.List)
			r.Put("/{id}/status", orderHandler.UpdateStatus)
			r.Put("/{id}/pay", orderHandler.MarkPaid)
			r.Delete("/{id}", orderHandler.Delete)
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/cart", cartHandler.Get)
		r.Post("/cart", cartHandler.Add)
		r.Put("/cart/{productId}", cartHandler.UpdateItem)
		r.Delete("/cart/{productId}", cartHandler.Remove)
		r.Post("/wishlist/{productId}", cartHandler.AddToWishlist)
		r.Delete("/wishlist/{productId}", cartHandler.RemoveFromWishlist)

		r.Group(func(r chi.Router) {
			r.Use(handler.RequireAdmin)
			r.Get("/", userHandler.List)
			r.Delete("/{id}", userHandler.Delete)
		})
	})

	return r
}

package routes

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tripgenie/booking"
	"tripgenie/db"
	"tripgenie/itinerary"
	"tripgenie/live"
	"tripgenie/middleware"
	"tripgenie/models"
	"tripgenie/pay"
	"tripgenie/profile"
	"tripgenie/ratelim"
	"tripgenie/reviews"
)

// Deps are the services the routes dispatch to.
type Deps struct {
	Auth        *middleware.Auth
	Limiter     *ratelim.RateLimiter
	Idempotency db.Idempotency
	Itineraries *itinerary.Service
	Bookings    *booking.Service
	Reviews     *reviews.Service
	Profiles    *profile.Service
	Payments    *pay.PaymentService
	Hub         *live.Hub
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("200"))
}

// RoutesWrapper registers every route. Most routes exist once per role
// prefix; the services decide what each role may do there.
func RoutesWrapper(router *httprouter.Router, d Deps) {
	router.GET("/health", Index)

	for _, role := range models.Roles {
		prefix := "/" + role.String()
		AddItineraryRoutes(router, prefix, role, d)
		if role == models.Guest {
			continue
		}
		AddBookingRoutes(router, prefix, role, d)
		AddReviewsRoutes(router, prefix, role, d)
		AddProfileRoutes(router, prefix, role, d)
	}
	AddAdminRoutes(router, d)
	AddContentRoutes(router, d)
	AddPayRoutes(router, d)
	AddLiveRoutes(router, d)
}

// read admits role; write also spends the caller's rate budget.
func read(d Deps, role models.Role, h httprouter.Handle) httprouter.Handle {
	return d.Auth.RequireRole(role, h)
}

func write(d Deps, role models.Role, h httprouter.Handle) httprouter.Handle {
	return d.Limiter.Limit(d.Auth.RequireRole(role, h))
}

func AddItineraryRoutes(router *httprouter.Router, prefix string, role models.Role, d Deps) {
	s := d.Itineraries
	router.GET(prefix+"/itineraries", read(d, role, s.GetItineraries))
	router.GET(prefix+"/itineraries/:id", read(d, role, s.GetItinerary))
	if role == models.Guest {
		return
	}
	router.POST(prefix+"/itineraries", write(d, role, s.CreateItinerary))
	router.PUT(prefix+"/itineraries/:id", write(d, role, s.UpdateItinerary))
	router.DELETE(prefix+"/itineraries/:id", write(d, role, s.DeleteItinerary))
	router.PUT(prefix+"/itineraries-activation/:id", write(d, role, s.ToggleItineraryActivation))
}

func AddBookingRoutes(router *httprouter.Router, prefix string, role models.Role, d Deps) {
	s := d.Bookings
	router.POST(prefix+"/itineraryBooking", write(d, role, pay.Idempotent(d.Idempotency, s.CreateBooking)))
	router.GET(prefix+"/itineraryBooking", read(d, role, s.ListBookings))
	router.DELETE(prefix+"/itineraryBooking/:id", write(d, role, s.CancelBooking))
	router.GET(prefix+"/itineraryBooking/:id/ticket", read(d, role, s.DownloadTicket))
}

func AddReviewsRoutes(router *httprouter.Router, prefix string, role models.Role, d Deps) {
	s := d.Reviews
	for path, target := range map[string]reviews.Target{
		"/itinerary": reviews.ItineraryTarget,
		"/tourguide": reviews.TourGuideTarget,
		"/activity":  reviews.ActivityTarget,
	} {
		router.POST(prefix+path+"/comment/:id", write(d, role, s.CommentHandler(target)))
		router.POST(prefix+path+"/rate/:id", write(d, role, s.RateHandler(target)))
	}
}

func AddProfileRoutes(router *httprouter.Router, prefix string, role models.Role, d Deps) {
	s := d.Profiles
	router.GET(prefix+"/profile", read(d, role, s.GetProfile))
	router.PUT(prefix+"/profile", write(d, role, s.EditProfile))
	router.DELETE(prefix+"/account", write(d, role, s.DeleteOwnAccount))
}

func AddAdminRoutes(router *httprouter.Router, d Deps) {
	router.PUT("/admin/itineraries-flag/:id", write(d, models.Admin, d.Itineraries.FlagItinerary))
	router.PUT("/admin/accounts/:id/accept", write(d, models.Admin, d.Profiles.AcceptAccount))
	router.DELETE("/admin/accounts/:id", write(d, models.Admin, d.Profiles.DeleteAccount))
}

func AddContentRoutes(router *httprouter.Router, d Deps) {
	router.POST("/advertiser/activities", write(d, models.Advertiser, d.Profiles.PostActivity))
	router.POST("/seller/products", write(d, models.Seller, d.Profiles.PostProduct))
}

func AddPayRoutes(router *httprouter.Router, d Deps) {
	router.GET("/tourist/wallet", read(d, models.Tourist, d.Payments.GetBalance))
}

func AddLiveRoutes(router *httprouter.Router, d Deps) {
	router.GET("/ws/itineraries/:id", d.Auth.OptionalAuth(live.WebSocketHandler(d.Hub)))
}

package http

import (
	"net/http"

	"hospital-booking/internal/delivery/http/handler"
	"hospital-booking/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	doctorHandler      *handler.DoctorHandler
	appointmentHandler *handler.AppointmentHandler
	scheduleHandler    *handler.ScheduleHandler
	auditLogHandler    *handler.AuditLogHandler
	wizardHandler      *handler.WizardHandler
	authMiddleware     *middleware.AuthMiddleware
	corsMiddleware     *middleware.CORSMiddleware
	metricsHandler     http.Handler
}

func NewRouter(
	doctorHandler *handler.DoctorHandler,
	appointmentHandler *handler.AppointmentHandler,
	scheduleHandler *handler.ScheduleHandler,
	auditLogHandler *handler.AuditLogHandler,
	wizardHandler *handler.WizardHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
	metricsHandler http.Handler,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		doctorHandler:      doctorHandler,
		appointmentHandler: appointmentHandler,
		scheduleHandler:    scheduleHandler,
		auditLogHandler:    auditLogHandler,
		wizardHandler:      wizardHandler,
		authMiddleware:     authMiddleware,
		corsMiddleware:     corsMiddleware,
		metricsHandler:     metricsHandler,
	}
}

// Setup registers every route. CORS wraps the whole router so preflight
// requests are answered even though no route accepts OPTIONS.
func (r *Router) Setup() http.Handler {
	if r.metricsHandler != nil {
		r.router.Handle("/metrics", r.metricsHandler).Methods(http.MethodGet)
	}

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Hospital directory (public)
	api.HandleFunc("/hospitals/{hospitalId}", r.doctorHandler.GetHospital).Methods(http.MethodGet)
	api.HandleFunc("/hospitals/{hospitalId}/doctors", r.doctorHandler.ListDoctors).Methods(http.MethodGet)
	api.HandleFunc("/hospitals/{hospitalId}/doctors/{doctorId}/availability", r.doctorHandler.GetAvailability).Methods(http.MethodGet)

	// Appointments (protected)
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.Use(r.authMiddleware.Authenticate)
	appointments.HandleFunc("", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)

	// Front desk (protected - staff or admin)
	frontDesk := appointments.PathPrefix("/{id}").Subrouter()
	frontDesk.Use(middleware.RequireStaff)
	frontDesk.HandleFunc("", r.appointmentHandler.GetAppointment).Methods(http.MethodGet)
	frontDesk.HandleFunc("/cancel", r.appointmentHandler.CancelAppointment).Methods(http.MethodPost)

	// Booking wizard sessions (protected)
	wizards := api.PathPrefix("/wizards").Subrouter()
	wizards.Use(r.authMiddleware.Authenticate)
	wizards.HandleFunc("", r.wizardHandler.StartWizard).Methods(http.MethodPost)
	wizards.HandleFunc("/{id}", r.wizardHandler.GetWizard).Methods(http.MethodGet)
	wizards.HandleFunc("/{id}", r.wizardHandler.DiscardWizard).Methods(http.MethodDelete)
	wizards.HandleFunc("/{id}/patient", r.wizardHandler.SetPatient).Methods(http.MethodPut)
	wizards.HandleFunc("/{id}/doctor", r.wizardHandler.SelectDoctor).Methods(http.MethodPut)
	wizards.HandleFunc("/{id}/date", r.wizardHandler.SelectDate).Methods(http.MethodPut)
	wizards.HandleFunc("/{id}/slot", r.wizardHandler.SelectSlot).Methods(http.MethodPut)
	wizards.HandleFunc("/{id}/next", r.wizardHandler.Next).Methods(http.MethodPost)
	wizards.HandleFunc("/{id}/back", r.wizardHandler.Back).Methods(http.MethodPost)
	wizards.HandleFunc("/{id}/submit", r.wizardHandler.Submit).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	// Schedule management (admin)
	admin.HandleFunc("/schedules", r.scheduleHandler.CreateSchedule).Methods(http.MethodPost)
	admin.HandleFunc("/schedules/{id}", r.scheduleHandler.DeleteSchedule).Methods(http.MethodDelete)
	admin.HandleFunc("/doctors/{doctorId}/schedules", r.scheduleHandler.GetSchedulesByDoctor).Methods(http.MethodGet)

	// Audit trail (admin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	if r.corsMiddleware == nil {
		return r.router
	}
	return r.corsMiddleware.Handle(r.router)
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

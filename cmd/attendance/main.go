package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/attendance-engine/internal/application"
	"github.com/example/attendance-engine/internal/attendance"
	"github.com/example/attendance-engine/internal/calendar"
	"github.com/example/attendance-engine/internal/config"
	httptransport "github.com/example/attendance-engine/internal/http"
	"github.com/example/attendance-engine/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := func() time.Time { return time.Now().In(calendar.Location()) }

	studentStore := newStudentStoreAdapter(sqlite.NewStudentRepository(pool))
	checkInStore := newCheckInStoreAdapter(sqlite.NewCheckInRepository(pool))
	permissionStore := newPermissionStoreAdapter(sqlite.NewPermissionRepository(pool))
	scheduleStore := newScheduleStoreAdapter(sqlite.NewScheduleRepository(pool))
	credentialStore := newCredentialStoreAdapter(sqlite.NewOperatorRepository(pool))
	sessionStore := newSessionStoreAdapter(sqlite.NewSessionRepository(pool))

	holidays := newHolidayProvider(ctx, cfg.HolidayFile, logger)

	registry := application.NewRegistryProvider(scheduleStore, logger)
	if err := registry.Reload(ctx); err != nil {
		logger.Warn("initial registry load failed, starting empty", "error", err)
	}

	detector := attendance.NewDetector(cfg.AnomalyThreshold, calendar.Location())
	reconciler := application.NewReconcilerServiceWithLogger(studentStore, checkInStore, permissionStore, registry, holidays, detector, now, logger)

	recordService := application.NewRecordServiceWithLogger(checkInStore, studentStore, reconciler, idGenerator, now, logger)
	studentService := application.NewStudentServiceWithLogger(studentStore, idGenerator, now, logger)
	permissionService := application.NewPermissionServiceWithLogger(permissionStore, studentStore, idGenerator, now, logger)
	scheduleService := application.NewScheduleServiceWithLogger(scheduleStore, registry, now, logger)
	warningService := application.NewWarningServiceWithLogger(reconciler, cfg.ConsecutiveAbsenceLimit, cfg.MonthlyAbsenceLimit, now, logger)
	authService := application.NewAuthServiceWithLogger(credentialStore, sessionStore, nil, tokenGenerator, idGenerator, now, cfg.SessionTTL, logger)
	notificationService := application.NewNotificationServiceWithLogger(studentStore, reconciler, newLogNotifier(logger), cfg.NotificationTriggers, cfg.NotificationWorkers, now, logger)

	if len(cfg.NotificationTriggers) > 0 {
		go notificationService.Scheduler(ctx, time.Minute)
	}
	go purgeSessionsLoop(ctx, authService, logger)

	authHandler := httptransport.NewAuthHandler(authService, logger)
	studentHandler := httptransport.NewStudentHandler(studentService, reconciler, warningService, logger)
	recordHandler := httptransport.NewRecordHandler(recordService, reconciler, logger)
	permissionHandler := httptransport.NewPermissionHandler(permissionService, logger)
	scheduleHandler := httptransport.NewScheduleHandler(scheduleService, logger)
	notificationHandler := httptransport.NewNotificationHandler(notificationService, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          authHandler,
		Students:      studentHandler,
		Records:       recordHandler,
		Permissions:   permissionHandler,
		Schedules:     scheduleHandler,
		Notifications: notificationHandler,
	})

	protected := httptransport.RequireSession(authService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Login and device check-in capture are the only unauthenticated
		// endpoints; capture devices hold no operator session.
		switch {
		case r.URL.Path == "/sessions" && r.Method == http.MethodPost:
			router.ServeHTTP(w, r)
		case r.URL.Path == "/check-ins":
			router.ServeHTTP(w, r)
		default:
			protected.ServeHTTP(w, r)
		}
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("attendance API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// newHolidayProvider loads the configured holiday file and watches it for
// changes. Without a configured file the calendar runs with no holidays.
func newHolidayProvider(ctx context.Context, path string, logger *slog.Logger) application.HolidayProvider {
	if path == "" {
		return staticHolidays{holidays: calendar.NewHolidays(nil)}
	}

	file := calendar.NewHolidayFile(path, logger)
	if err := file.Load(); err != nil {
		logger.Warn("holiday file unreadable, starting with none", "path", path, "error", err)
	}
	go func() {
		if err := file.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("holiday file watch stopped", "path", path, "error", err)
		}
	}()
	return file
}

type staticHolidays struct {
	holidays *calendar.Holidays
}

func (s staticHolidays) Snapshot() *calendar.Holidays {
	return s.holidays
}

// purgeSessionsLoop deletes expired sessions on an hourly cadence.
func purgeSessionsLoop(ctx context.Context, auth *application.AuthService, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := auth.PurgeExpiredSessions(ctx); err != nil {
				logger.Error("failed to purge expired sessions", "error", err)
			}
		}
	}
}

type logNotifier struct {
	logger *slog.Logger
}

func newLogNotifier(logger *slog.Logger) logNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return logNotifier{logger: logger}
}

// NotifyAbsence records the absence in the log stream. Delivery to guardians
// goes through whatever channel the deployment hooks in here.
func (n logNotifier) NotifyAbsence(ctx context.Context, student application.Student, record attendance.DayRecord) error {
	phone := ""
	if student.Phone != nil {
		phone = *student.Phone
	}
	n.logger.InfoContext(ctx, "absence notification",
		"student_id", student.ID,
		"full_name", student.FullName,
		"class_key", student.ClassKey,
		"date", string(record.Date),
		"phone", phone,
	)
	return nil
}

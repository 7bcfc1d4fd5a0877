package handler

import (
	"net/http"

	"github.com/cxkit/inqueue-voice-service/internal/cache"
	"github.com/cxkit/inqueue-voice-service/internal/config"
	"github.com/cxkit/inqueue-voice-service/internal/flow"
	"github.com/cxkit/inqueue-voice-service/internal/services/agentops"
	"github.com/cxkit/inqueue-voice-service/internal/taskrouter"
	"github.com/cxkit/inqueue-voice-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HandlerManager builds all services and handlers from the configuration and
// registers their routes. One task gateway is constructed here and injected
// everywhere; nothing holds credentials as ambient global state.
type HandlerManager struct {
	config  *config.Config
	gateway taskrouter.Gateway

	queueMenu *QueueMenuHandler
	callback  *CallbackHandler
	voicemail *VoicemailHandler
	utils     *UtilsHandler
}

// NewHandlerManager creates all services and handlers.
func NewHandlerManager(cfg *config.Config) (*HandlerManager, error) {
	gateway, err := taskrouter.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWorkspaceSID)
	if err != nil {
		return nil, err
	}
	return newHandlerManager(cfg, gateway), nil
}

// newHandlerManager wires the handlers to an explicit gateway; tests use it
// with a fake.
func newHandlerManager(cfg *config.Config, gateway taskrouter.Gateway) *HandlerManager {
	log := logger.Base()

	opts := flow.Options{
		BaseURL:                  cfg.PublicBaseURL,
		Voice:                    cfg.SayVoice,
		Language:                 cfg.SayLanguage,
		HoldMusicURL:             cfg.HoldMusicURL,
		EstimatedWaitTimeEnabled: cfg.EstimatedWaitTimeEnabled,
		StatsWindowMinutes:       cfg.StatsWindowMinutes,
		QueuePositionEnabled:     cfg.QueuePositionEnabled,
		CallbackPriority:         cfg.CallbackTaskPriority,
		VoicemailPriority:        cfg.VoicemailTaskPriority,
		CallbackAlertTone:        cfg.CallbackAlertTone,
		VoicemailAlertTone:       cfg.VoicemailAlertTone,
		TimeZone:                 cfg.TimeZone,
	}

	var stats flow.StatsProvider = gateway
	if cfg.RedisHost != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		stats = cache.NewWorkflowStatsCache(gateway, client, cache.DefaultStatsTTL, log)
		log.Info("workflow stats cache enabled",
			zap.String("redis_addr", cfg.RedisHost+":"+cfg.RedisPort))
	}

	return &HandlerManager{
		config:    cfg,
		gateway:   gateway,
		queueMenu: NewQueueMenuHandler(flow.NewQueueMenu(gateway, stats, opts, log)),
		callback:  NewCallbackHandler(flow.NewCallback(gateway, opts, log)),
		voicemail: NewVoicemailHandler(flow.NewVoicemail(gateway, opts, log)),
		utils:     NewUtilsHandler(agentops.NewService(gateway, log)),
	}
}

// SetupAllRoutes registers every webhook surface on the router.
func (m *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(LoggingMiddleware)

	// Voice webhooks; the platform calls them with POST, redirects and
	// record actions may use GET.
	router.HandleFunc(flow.PathQueueMenu, m.queueMenu.Handle).Methods("GET", "POST")
	router.HandleFunc(flow.PathCallback, m.callback.Handle).Methods("GET", "POST")
	router.HandleFunc(flow.PathVoicemail, m.voicemail.Handle).Methods("GET", "POST")

	// Agent-desktop endpoint: CORS-open, bearer-token authenticated.
	utilsRouter := router.PathPrefix("/inqueue-utils").Subrouter()
	utilsRouter.Use(CORSMiddleware)
	utilsRouter.Use(BearerTokenMiddleware(m.config.UtilsTokenSecret))
	utilsRouter.HandleFunc("", m.utils.Handle).Methods("POST", "OPTIONS")

	// Hold music and alert tones referenced from TwiML and task attributes.
	router.PathPrefix("/assets/").Handler(
		http.StripPrefix("/assets/", http.FileServer(http.Dir(m.config.AssetsDir))))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}).Methods("GET")

	logger.Base().Info("routes registered")
}

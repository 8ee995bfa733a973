package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohitkumar/canvasflow/agent"
	"github.com/mohitkumar/canvasflow/analytics"
	"github.com/mohitkumar/canvasflow/config"
	"github.com/mohitkumar/canvasflow/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("log-level", "info", "log level: debug, info, warn or error")
	cmd.Flags().Bool("log-development", false, "human readable development logging")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().String("namespace", "canvasflow", "namespace used in storage")
	cmd.Flags().String("storage-impl", "memory", "workflow storage: redis or memory")
	cmd.Flags().String("cache-impl", "memory", "transcript cache: redis or memory")
	cmd.Flags().String("encoder-decoder", "JSON", "encoder decoder used to serialize data")
	cmd.Flags().Duration("transcript-cache-ttl", 0, "transcript cache entry lifetime")
	cmd.Flags().String("analytics", "LOG", "pipeline analytics collector: LOG, OPENCENSUS or NOOP")

	cmd.Flags().String("captions-url", "", "captions service base url")
	cmd.Flags().String("player-info-url", "", "player info endpoint listing audio formats")
	cmd.Flags().String("extractor-url", "", "yt-dlp extractor service base url")
	cmd.Flags().Duration("download-timeout", 0, "audio download timeout")

	cmd.Flags().String("apify-token", "", "apify api token")
	cmd.Flags().String("apify-url", "", "apify api base url")
	cmd.Flags().String("instagram-oembed-token", "", "instagram oembed access token")
	cmd.Flags().String("instagram-oembed-url", "", "instagram oembed endpoint")
	cmd.Flags().String("linkedin-oembed-url", "", "linkedin oembed endpoint")
	cmd.Flags().Duration("oembed-timeout", 0, "oembed request timeout")
	cmd.Flags().Duration("scrape-timeout", 0, "page scrape timeout")
	cmd.Flags().Duration("actor-timeout", 0, "scraping actor run timeout")
	cmd.Flags().Bool("disable-media-backup", false, "keep social media on its original cdn urls")

	cmd.Flags().String("deepgram-key", "", "deepgram api key")
	cmd.Flags().String("deepgram-url", "", "deepgram api base url")
	cmd.Flags().String("deepgram-live-url", "", "deepgram live streaming url")
	cmd.Flags().String("deepgram-model", "", "deepgram model")

	cmd.Flags().String("gemini-key", "", "gemini api key")
	cmd.Flags().String("gemini-model", "", "gemini model")

	cmd.Flags().String("supabase-url", "", "supabase project url")
	cmd.Flags().String("supabase-key", "", "supabase service role key")
	cmd.Flags().String("supabase-bucket", "media", "supabase storage bucket")

	cmd.Flags().Duration("stale-after", 0, "age after which a node output is executed again, 0 keeps outputs")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return err
			}
		}
	}
	viper.SetEnvPrefix("CANVASD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.CacheType = config.CacheType(viper.GetString("cache-impl"))
	c.cfg.EncoderDecoderType = config.EncoderDecoderType(viper.GetString("encoder-decoder"))
	c.cfg.TranscriptCacheTTL = viper.GetDuration("transcript-cache-ttl")
	c.cfg.AnalyticsConfig.CollectorType = analytics.DataCollectorType(viper.GetString("analytics"))

	c.cfg.YouTube.CaptionsServiceURL = viper.GetString("captions-url")
	c.cfg.YouTube.PlayerInfoURL = viper.GetString("player-info-url")
	c.cfg.YouTube.ExtractorServiceURL = viper.GetString("extractor-url")
	c.cfg.YouTube.DownloadTimeout = viper.GetDuration("download-timeout")

	c.cfg.Social.ApifyToken = viper.GetString("apify-token")
	c.cfg.Social.ApifyBaseURL = viper.GetString("apify-url")
	c.cfg.Social.InstagramOEmbedKey = viper.GetString("instagram-oembed-token")
	c.cfg.Social.InstagramOEmbedURL = viper.GetString("instagram-oembed-url")
	c.cfg.Social.LinkedInOEmbedURL = viper.GetString("linkedin-oembed-url")
	c.cfg.Social.OEmbedTimeout = viper.GetDuration("oembed-timeout")
	c.cfg.Social.ScrapeTimeout = viper.GetDuration("scrape-timeout")
	c.cfg.Social.ActorTimeout = viper.GetDuration("actor-timeout")
	c.cfg.Social.DisableMediaBackup = viper.GetBool("disable-media-backup")

	c.cfg.Deepgram.APIKey = viper.GetString("deepgram-key")
	c.cfg.Deepgram.BaseURL = viper.GetString("deepgram-url")
	c.cfg.Deepgram.LiveURL = viper.GetString("deepgram-live-url")
	c.cfg.Deepgram.Model = viper.GetString("deepgram-model")

	c.cfg.Gemini.APIKey = viper.GetString("gemini-key")
	c.cfg.Gemini.Model = viper.GetString("gemini-model")

	c.cfg.ObjectStorage.SupabaseURL = viper.GetString("supabase-url")
	c.cfg.ObjectStorage.ServiceKey = viper.GetString("supabase-key")
	c.cfg.ObjectStorage.Bucket = viper.GetString("supabase-bucket")

	c.cfg.Executor.StaleAfter = viper.GetDuration("stale-after")
	return logger.Init(c.cfg.LogLevel, viper.GetBool("log-development"))
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		return err
	}
	if err = agent.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "canvasd",
		Short:   "content acquisition and context aggregation service",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai"
	"github.com/spance/linkdoctor-go/linkdoctor"
	"github.com/spance/linkdoctor-go/linkdoctor/advisor"
	"github.com/spance/linkdoctor-go/linkdoctor/android"
	"github.com/spance/linkdoctor-go/linkdoctor/definitions"
	"github.com/spance/linkdoctor-go/utils"
	"github.com/spf13/cobra"
)

// Config holds all the configuration values from command line arguments
type Config struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`

	Serial      string `json:"serial"`
	Connect     string `json:"connect"`
	Disconnect  string `json:"disconnect"`
	ListDevices bool   `json:"list_devices"`
	Watch       bool   `json:"watch"`

	AppLinks bool   `json:"app_links"`
	Manifest bool   `json:"manifest"`
	Logcat   bool   `json:"logcat"`
	Reverify bool   `json:"reverify"`
	Validate string `json:"validate"`
	Explain  bool   `json:"explain"`
	Offline  bool   `json:"offline"`

	Fingerprint string `json:"fingerprint"`
	Timeout     int    `json:"timeout"`
	MaxParallel int    `json:"max_parallel"`
	JSONOutput  bool   `json:"json_output"`
	Debug       bool   `json:"debug"`

	Package string `json:"package"`
}

var rootCmd = &cobra.Command{
	Use:   "linkdoctor [package]",
	Short: "Link Doctor - Android App Links diagnostics",
	Long: `Link Doctor diagnoses why Android App Links verification fails.
It reads the device's verification report over ADB, fetches each domain's
assetlinks.json the way the system verifier does, reconciles signing
fingerprints, and explains every failed domain with a concrete fix.`,
	Example: `  # Full diagnosis for a package (single connected device)
  linkdoctor com.example.app

  # Pick a device explicitly
  linkdoctor -d emulator-5554 com.example.app

  # Machine-readable report
  linkdoctor --json com.example.app

  # Device report only, no network fetches
  linkdoctor --offline com.example.app

  # Show what the device reports, nothing else
  linkdoctor --applinks com.example.app

  # Check a domain's assetlinks.json without any device
  linkdoctor --validate example.com

  # Inspect the package's deep link intent filters
  linkdoctor --manifest com.example.app

  # Classify recent deep link activity from logcat
  linkdoctor --logcat

  # Ask the device to verify again
  linkdoctor --reverify com.example.app

  # List connected devices
  linkdoctor --list-devices

  # Follow device state changes
  linkdoctor --watch`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			config.Package = args[0]
		}
	},
}

var config = &Config{}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as int with default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Helper function to get environment variable as float32 with default value
func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func init() {
	// Model options (advisor only)
	rootCmd.PersistentFlags().StringVar(&config.BaseURL, "base-url",
		getEnv("LINKDOCTOR_BASE_URL", ""),
		"Model API base URL for --explain (empty = OpenAI default)")

	rootCmd.PersistentFlags().StringVar(&config.Model, "model",
		getEnv("LINKDOCTOR_MODEL", "gpt-4o-mini"),
		"Model name for --explain")

	rootCmd.PersistentFlags().StringVar(&config.APIKey, "apikey",
		getEnv("LINKDOCTOR_API_KEY", "EMPTY"),
		"API key for model authentication")

	// Device options
	rootCmd.PersistentFlags().StringVarP(&config.Serial, "device", "d",
		getEnv("LINKDOCTOR_DEVICE", ""),
		"ADB device serial (default: the single online device)")

	rootCmd.PersistentFlags().StringVarP(&config.Connect, "connect", "c", "",
		"Connect to remote device (e.g., 192.168.1.100:5555)")

	rootCmd.PersistentFlags().StringVar(&config.Disconnect, "disconnect", "",
		"Disconnect from remote device (or 'all' to disconnect all)")

	rootCmd.PersistentFlags().BoolVar(&config.ListDevices, "list-devices", false,
		"List connected devices and exit")

	rootCmd.PersistentFlags().BoolVar(&config.Watch, "watch", false,
		"Watch device state changes until interrupted")

	// Diagnostic actions
	rootCmd.PersistentFlags().BoolVar(&config.AppLinks, "applinks", false,
		"Print the device's app links report for the package and exit")

	rootCmd.PersistentFlags().BoolVar(&config.Manifest, "manifest", false,
		"Print the package's deep link intent filters and exit")

	rootCmd.PersistentFlags().BoolVar(&config.Logcat, "logcat", false,
		"Classify recent deep link events from the logcat buffer and exit")

	rootCmd.PersistentFlags().BoolVar(&config.Reverify, "reverify", false,
		"Ask the device to re-run App Links verification for the package")

	rootCmd.PersistentFlags().StringVar(&config.Validate, "validate", "",
		"Validate a domain's assetlinks.json without a device and exit")

	rootCmd.PersistentFlags().BoolVar(&config.Explain, "explain", false,
		"Have a model explain the diagnosis (needs --apikey)")

	rootCmd.PersistentFlags().BoolVar(&config.Offline, "offline", false,
		"Diagnose from the device report only, skip all network fetches")

	// Tuning
	rootCmd.PersistentFlags().StringVar(&config.Fingerprint, "fingerprint", "",
		"Expected SHA-256 signing fingerprint (overrides the on-device lookup)")

	rootCmd.PersistentFlags().IntVar(&config.Timeout, "timeout",
		getEnvInt("LINKDOCTOR_TIMEOUT", 15),
		"Per-command and per-fetch timeout in seconds")

	rootCmd.PersistentFlags().IntVar(&config.MaxParallel, "max-parallel",
		getEnvInt("LINKDOCTOR_MAX_PARALLEL", 4),
		"Maximum concurrent assetlinks.json fetches")

	rootCmd.PersistentFlags().BoolVar(&config.JSONOutput, "json", false,
		"Print results as indented JSON on stdout")

	rootCmd.PersistentFlags().BoolVar(&config.Debug, "debug", false,
		"Enable debug mode (default: false)")
}

func main() {
	parseArgs()

	// Configure zerolog
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if config.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx := context.Background()
	timeout := time.Duration(config.Timeout) * time.Second

	// Handle --validate (no device needed)
	if config.Validate != "" {
		doctor := linkdoctor.CreateDoctor(timeout, config.Fingerprint)
		runValidate(ctx, doctor)
		return
	}

	manager := android.NewDeviceManager()

	// Handle device commands
	if hitCmd := handleDeviceCommands(ctx, manager); hitCmd {
		return
	}

	if passed := checkSystemRequirements(); !passed {
		log.Error().Msg("❌ System check failed. Please fix the issues above.")
		return
	}

	serial, err := resolveSerial(ctx, manager)
	if err != nil {
		log.Error().Err(err).Msg("❌ no usable device")
		return
	}
	log.Debug().Str("serial", serial).Msg("device selected")

	doctor := linkdoctor.CreateDoctor(timeout, config.Fingerprint)
	doctor.SkipNetwork = config.Offline
	if config.MaxParallel > 0 {
		doctor.MaxParallelDomains = config.MaxParallel
	}

	switch {
	case config.AppLinks:
		runAppLinks(ctx, doctor, serial)
	case config.Manifest:
		runManifest(ctx, doctor, serial)
	case config.Logcat:
		runLogcat(ctx, doctor, serial)
	case config.Reverify:
		runReverify(ctx, doctor, serial)
	default:
		runDiagnose(ctx, doctor, serial)
	}
}

func parseArgs() *Config {
	// Set pre-run validation
	rootCmd.PersistentPreRunE = validateArgs

	// Execute the command
	cobra.CheckErr(rootCmd.Execute())

	return config
}

func validateArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("expected at most one package name, got %d arguments", len(args))
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %d. Must be a positive number of seconds", config.Timeout)
	}

	deviceFree := config.ListDevices || config.Watch || config.Logcat ||
		config.Connect != "" || config.Disconnect != "" || config.Validate != ""
	if len(args) == 0 && !deviceFree {
		return fmt.Errorf("a package name is required for this action")
	}

	return nil
}

func handleDeviceCommands(ctx context.Context, manager *android.DeviceManager) bool {
	// Handle --list-devices
	if config.ListDevices {
		devices, _ := manager.ListDevices(ctx)
		if len(devices) == 0 {
			log.Info().Msg("No devices connected.")
		} else {
			log.Info().Msg("Connected devices:")
			log.Info().Msg(strings.Repeat("-", 60))
			for _, d := range devices {
				statusIcon := "✅"
				if !d.IsOnline() {
					statusIcon = "❌"
				}
				modelInfo := ""
				if d.Model != "" {
					modelInfo = fmt.Sprintf(" (%s)", d.Model)
				}
				log.Info().Str("device", fmt.Sprintf("  %s %-30s [%s]%s", statusIcon, d.Serial, d.Connection, modelInfo)).Msg("")
			}
		}
		return true
	}

	// Handle --connect
	if config.Connect != "" {
		log.Info().Msgf("Connecting to %s...", config.Connect)
		message, err := manager.Connect(ctx, config.Connect)
		if err != nil {
			log.Error().Str("msg", message).Msg("❌")
		} else {
			log.Info().Str("msg", message).Msg("✅")
		}
		return true
	}

	// Handle --disconnect
	if config.Disconnect != "" {
		var (
			message string
			err     error
		)

		if config.Disconnect == "all" {
			log.Info().Msg("Disconnecting all remote devices...")
			message, err = manager.Disconnect(ctx, "")
		} else {
			log.Info().Msgf("Disconnecting from %s...", config.Disconnect)
			message, err = manager.Disconnect(ctx, config.Disconnect)
		}

		var statusSymbol string
		if err != nil {
			statusSymbol = "❌"
		} else {
			statusSymbol = "✅"
		}
		log.Info().Msgf("%s %s", statusSymbol, strings.TrimSpace(message))
		return true
	}

	// Handle --watch
	if config.Watch {
		watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()

		log.Info().Msg("Watching device state changes, Ctrl-C to stop...")
		watcher := android.NewDeviceWatcher(manager, 2*time.Second)
		for change := range watcher.Watch(watchCtx) {
			icon := "✅"
			if change.NewState != definitions.StateOnline {
				icon = "❌"
			}
			log.Info().Msgf("%s %s: %s -> %s", icon, change.Serial, change.OldState, change.NewState)
		}
		return true
	}

	return false
}

// resolveSerial picks the device to talk to: the explicit --device value,
// or the single online device when there is exactly one.
func resolveSerial(ctx context.Context, manager *android.DeviceManager) (string, error) {
	if config.Serial != "" {
		return config.Serial, nil
	}

	devices, err := manager.ListDevices(ctx)
	if err != nil {
		return "", err
	}
	online := lo.Filter(devices, func(d definitions.Device, _ int) bool {
		return d.IsOnline()
	})

	switch len(online) {
	case 0:
		return "", fmt.Errorf("no online devices; connect one or pass --device")
	case 1:
		return online[0].Serial, nil
	default:
		serials := lo.Map(online, func(d definitions.Device, _ int) string { return d.Serial })
		return "", fmt.Errorf("multiple devices online (%s); pick one with --device", strings.Join(serials, ", "))
	}
}

func runDiagnose(ctx context.Context, doctor *linkdoctor.Doctor, serial string) {
	diag, err := doctor.Diagnose(ctx, serial, config.Package)
	if err != nil {
		log.Error().Err(err).Msg("❌ diagnosis failed")
		return
	}

	if config.JSONOutput {
		fmt.Println(utils.JsonIndent(diag))
	} else {
		printDiagnostics(diag)
	}

	if config.Explain {
		runExplain(ctx, diag)
	}
}

func printDiagnostics(diag *definitions.VerificationDiagnostics) {
	log.Info().Msg(strings.Repeat("=", 60))
	log.Info().Msgf("App Links report for %s", diag.PackageName)
	log.Info().Msgf("Report %s on device %s", diag.ReportID, diag.DeviceSerial)
	if diag.LocalFingerprint != "" {
		log.Info().Msgf("Local fingerprint: %s", diag.LocalFingerprint)
	}
	log.Info().Msg(strings.Repeat("-", 60))

	if diag.TotalDomains == 0 {
		log.Info().Msg("No verifiable domains declared on this device.")
	}

	for _, d := range diag.Domains {
		icon := "✅"
		if !d.VerificationState.IsSuccessful() {
			icon = "❌"
		}
		log.Info().Msgf("%s %-40s %s", icon, d.Domain, d.VerificationState)

		if d.AssetLinksStatus != definitions.StatusValid && d.AssetLinksStatus != definitions.StatusNotChecked {
			log.Info().Msgf("   asset links: %s", d.AssetLinksStatus)
		}
		for _, reason := range d.FailureReasons {
			log.Info().Msgf("   reason: %s", reason)
		}
		for _, suggestion := range d.Suggestions {
			log.Info().Msgf("   fix: %s", suggestion)
		}
	}

	log.Info().Msg(strings.Repeat("-", 60))
	log.Info().Msgf("%d domain(s): %d verified, %d failed",
		diag.TotalDomains, diag.VerifiedDomains, diag.FailedDomains)
}

func runExplain(ctx context.Context, diag *definitions.VerificationDiagnostics) {
	if passed := checkModelAPI(ctx, config.BaseURL, config.Model, config.APIKey); !passed {
		log.Error().Msg("❌ Model API check failed. Please fix the issues above.")
		return
	}

	modelConfig := &definitions.ModelConfig{
		BaseURL:     config.BaseURL,
		ModelName:   config.Model,
		APIKey:      config.APIKey,
		MaxTokens:   getEnvInt("LINKDOCTOR_MAX_TOKENS", 1500),
		Temperature: getEnvFloat32("LINKDOCTOR_TEMPERATURE", 0.2),
	}

	log.Info().Msg("💭 Advisor:")
	if _, err := advisor.NewAdvisor(modelConfig).Explain(ctx, diag); err != nil {
		log.Error().Err(err).Msg("❌ advisor failed")
	}
}

func runValidate(ctx context.Context, doctor *linkdoctor.Doctor) {
	validation := doctor.ValidateDomain(ctx, config.Validate)

	if config.JSONOutput {
		fmt.Println(utils.JsonIndent(validation))
		return
	}

	icon := "✅"
	if validation.Status != definitions.StatusValid {
		icon = "❌"
	}
	log.Info().Msgf("%s %s: %s", icon, validation.URL, validation.Status)

	for _, issue := range validation.Issues {
		if issue.Details != "" {
			log.Info().Msgf("   [%s] %s (%s)", issue.Severity, issue.Message, issue.Details)
		} else {
			log.Info().Msgf("   [%s] %s", issue.Severity, issue.Message)
		}
	}

	if validation.Content != nil {
		for _, st := range validation.Content.Statements {
			if st.Target == nil {
				continue
			}
			log.Info().Msgf("   statement: %s (%d fingerprint(s))",
				st.Target.PackageName, len(st.Target.Sha256CertFingerprints))
		}
	}
}

func runAppLinks(ctx context.Context, doctor *linkdoctor.Doctor, serial string) {
	links, err := doctor.GetAppLinks(ctx, serial, config.Package)
	if err != nil {
		log.Error().Err(err).Msg("❌ reading app links failed")
		return
	}

	if config.JSONOutput {
		fmt.Println(utils.JsonIndent(links))
		return
	}

	if len(links) == 0 {
		log.Info().Msg("The device reports no app link declarations.")
		return
	}

	for _, link := range links {
		log.Info().Msgf("%s:", link.PackageName)
		for _, d := range link.Domains {
			icon := "✅"
			if !d.State.IsSuccessful() {
				icon = "❌"
			}
			log.Info().Msgf("  %s %-40s %s", icon, d.Domain, d.State)
		}
	}
}

func runManifest(ctx context.Context, doctor *linkdoctor.Doctor, serial string) {
	info, err := doctor.InspectManifest(ctx, serial, config.Package)
	if err != nil {
		log.Error().Err(err).Msg("❌ reading manifest failed")
		return
	}

	if config.JSONOutput {
		fmt.Println(utils.JsonIndent(info))
		return
	}

	log.Info().Msgf("%s %s (versionCode %s)", info.PackageName, info.VersionName, info.VersionCode)
	log.Info().Msg(strings.Repeat("-", 60))

	if len(info.DeepLinks) == 0 {
		log.Info().Msg("No deep link intent filters found.")
		return
	}

	for _, dl := range info.DeepLinks {
		marker := "  "
		if dl.AutoVerify {
			marker = "🔗"
		}
		log.Info().Msgf("%s %s -> %s", marker, dl.Example(), dl.Activity)
	}
	log.Info().Msg(strings.Repeat("-", 60))
	log.Info().Msgf("Verifiable domains: %s", strings.Join(info.VerifiableDomains(), ", "))
}

func runLogcat(ctx context.Context, doctor *linkdoctor.Doctor, serial string) {
	events, err := doctor.DeepLinkEvents(ctx, serial)
	if err != nil {
		log.Error().Err(err).Msg("❌ reading logcat failed")
		return
	}

	if config.JSONOutput {
		fmt.Println(utils.JsonIndent(events))
		return
	}

	if len(events) == 0 {
		log.Info().Msg("No deep link activity in the recent logcat buffer.")
		return
	}

	for _, event := range events {
		icon := "✅"
		if event.Type == definitions.EventError {
			icon = "❌"
		}
		log.Info().Msgf("%s %-10s %s", icon, event.Type, event.Description)
	}
}

func runReverify(ctx context.Context, doctor *linkdoctor.Doctor, serial string) {
	output, err := doctor.ForceReverify(ctx, serial, config.Package)
	if err != nil {
		log.Error().Err(err).Msg("❌ re-verification failed")
		return
	}

	if output != "" {
		log.Info().Msg(output)
	}
	log.Info().Msgf("✅ re-verification requested for %s", config.Package)
	log.Info().Msg("Run the diagnosis again in a few seconds to see the new states.")
}

func checkSystemRequirements() bool {
	log.Info().Msg("🔍 Checking system requirements...")
	log.Info().Msg(strings.Repeat("-", 50))

	// Check 1: adb installed
	log.Info().Msg("1. Checking ADB installation... ")
	_, err := exec.LookPath("adb")
	if err != nil {
		log.Error().Msg("❌ FAILED")
		log.Info().Msg("   Error: adb is not installed or not in PATH.")
		log.Info().Msg("   Solution: Install the Android platform tools:")
		log.Info().Msg("     - macOS: brew install android-platform-tools")
		log.Info().Msg("     - Linux: sudo apt install android-tools-adb")
		log.Info().Msg("     - Windows: Download from https://developer.android.com/studio/releases/platform-tools")
		return false
	}

	output, err := exec.Command("adb", "version").Output()
	if err != nil {
		log.Error().Msg("❌ FAILED")
		log.Info().Msgf("   Error: adb failed to run: %v", err)
		return false
	}
	versionLine := "installed"
	if lines := strings.Split(string(output), "\n"); len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		versionLine = strings.TrimSpace(lines[0])
	}
	log.Info().Msgf("✅ OK (%s)", versionLine)

	log.Info().Msg(strings.Repeat("-", 50))
	return true
}

func checkModelAPI(ctx context.Context, baseURL, modelName, apiKey string) bool {
	log.Info().Msg("🔍 Checking model API...")

	openaiCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		openaiCfg.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(openaiCfg)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: modelName,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: "please return hello world",
				},
			},
			MaxCompletionTokens: 5,
			Temperature:         0,
			Stream:              false,
		},
	)
	if err != nil {
		log.Error().Msg("❌ FAILED")
		errorMsg := err.Error()
		switch {
		case strings.Contains(errorMsg, "connection refused") || strings.Contains(errorMsg, "connection error"):
			log.Info().Msgf("   Error: Cannot connect to %s", baseURL)
			log.Info().Msg("   Check that the model server is running and the base URL is correct.")
		case strings.Contains(strings.ToLower(errorMsg), "timed out") || strings.Contains(errorMsg, "timeout"):
			log.Info().Msgf("   Error: Connection to %s timed out", baseURL)
		case strings.Contains(errorMsg, "no such host") || strings.Contains(errorMsg, "name resolution"):
			log.Info().Msg("   Error: Cannot resolve the API hostname")
		default:
			log.Info().Msgf("   Error: %s", errorMsg)
		}
		return false
	}

	if len(resp.Choices) == 0 {
		log.Error().Msg("❌ FAILED")
		log.Error().Msg("   Error: Received empty response from API")
		return false
	}

	log.Info().Msgf("✅ OK, Response: %s", utils.JsonString(resp))
	return true
}

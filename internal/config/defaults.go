package config

const (
	defaultVKAPIVersion = "5.131"
	defaultVKBaseURL    = "https://api.vk.com/method"
	defaultDiskBaseURL  = "https://cloud-api.yandex.net/v1/disk"
	defaultDiskWeb      = "https://disk.yandex.ru/client/disk/"
	defaultStagingDir   = "vk_photos"
	defaultManifest     = "uploaded_photos.json"
	defaultLogFile      = "app.log"
	defaultLogLevel     = "info"
	defaultWebAddr      = ":5000"
)

// Default returns the built-in configuration. It has no VK token, so it
// does not pass Validate on its own.
func Default() Config {
	return Config{
		VK: VK{
			APIVersion: defaultVKAPIVersion,
			BaseURL:    defaultVKBaseURL,
		},
		Disk: Disk{
			BaseURL:   defaultDiskBaseURL,
			WebPrefix: defaultDiskWeb,
		},
		Paths: Paths{
			StagingDir: defaultStagingDir,
			Manifest:   defaultManifest,
			LogFile:    defaultLogFile,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
		Web: Web{
			Addr: defaultWebAddr,
		},
	}
}

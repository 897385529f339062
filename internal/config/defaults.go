package config

const (
	defaultLogLevel            = "info"
	defaultLogFormat           = "console"
	defaultParallel            = 1
	defaultParallelConnections = 4
	defaultTimeoutSeconds      = 60
	defaultPrefetchWorkers     = 4
	defaultUploadWorkers       = 2
	defaultQueueSize           = 10
)

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		LogLevel:            defaultLogLevel,
		LogFormat:           defaultLogFormat,
		Parallel:            defaultParallel,
		ParallelConnections: defaultParallelConnections,
		TimeoutSeconds:      defaultTimeoutSeconds,
		PrefetchWorkers:     defaultPrefetchWorkers,
		UploadWorkers:       defaultUploadWorkers,
		QueueSize:           defaultQueueSize,
	}
}

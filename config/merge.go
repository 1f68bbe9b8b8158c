package config

// mergeConfigs merges override configuration into base. Zero values in
// override leave the base value in place. Source is kept from base.
func mergeConfigs(base, override *Config) *Config {
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	result.Watch = mergeWatch(base.Watch, override.Watch)
	result.Daemon = mergeDaemon(base.Daemon, override.Daemon)

	// Merge extensions
	if override.Extensions != nil {
		merged := make(map[string]interface{}, len(base.Extensions)+len(override.Extensions))
		for key, value := range base.Extensions {
			merged[key] = value
		}
		for key, value := range override.Extensions {
			// If both base and override have the same extension key, merge them
			if baseMap, ok := merged[key].(map[string]interface{}); ok {
				if overrideMap, ok := value.(map[string]interface{}); ok {
					m := make(map[string]interface{}, len(baseMap)+len(overrideMap))
					for k, v := range baseMap {
						m[k] = v
					}
					for k, v := range overrideMap {
						m[k] = v
					}
					merged[key] = m
					continue
				}
			}
			merged[key] = value
		}
		result.Extensions = merged
	}

	return &result
}

func mergeWatch(base, override WatchConfig) WatchConfig {
	result := base

	if override.PollIntervalMs != 0 {
		result.PollIntervalMs = override.PollIntervalMs
	}
	if override.DriveWatcher != nil {
		result.DriveWatcher = override.DriveWatcher
	}
	if override.DirectoryWatcher != nil {
		result.DirectoryWatcher = override.DirectoryWatcher
	}
	if override.Directory != "" {
		result.Directory = override.Directory
	}
	if len(override.Ignore) > 0 {
		result.Ignore = override.Ignore
	}
	if override.Backoff.InitialMs != 0 {
		result.Backoff.InitialMs = override.Backoff.InitialMs
	}
	if override.Backoff.MaxMs != 0 {
		result.Backoff.MaxMs = override.Backoff.MaxMs
	}

	return result
}

func mergeDaemon(base, override DaemonConfig) DaemonConfig {
	result := base

	if override.Socket != "" {
		result.Socket = override.Socket
	}
	if override.PidFile != "" {
		result.PidFile = override.PidFile
	}
	if override.DebounceMs != 0 {
		result.DebounceMs = override.DebounceMs
	}

	return result
}

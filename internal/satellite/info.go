package satellite

import "log/slog"

// SatelliteInfo describes the satellite itself in the info/describe
// response. Zero-valued fields fall back to the defaults the reference
// implementation shipped.
type SatelliteInfo struct {
	Name        string
	Description string
	Version     string
}

func (s *Satellite) handleDescribe() {
	info := s.info
	if info.Name == "" {
		info.Name = "Wyoming Go Satellite"
	}
	if info.Description == "" {
		info.Description = "my satellite"
	}
	if info.Version == "" {
		info.Version = "1.0.0"
	}

	data := map[string]any{
		"asr":    []any{},
		"tts":    []any{},
		"handle": []any{},
		"intent": []any{},
		"wake":   s.wakeDescribe(),
		"satellite": map[string]any{
			"name":        info.Name,
			"attribution": map[string]any{"name": "", "url": ""},
			"installed":   true,
			"description": info.Description,
			"version":     info.Version,
			"area":        nil,
			"snd_format":  nil,
		},
	}

	if err := s.sendEventAny("info", "1.5.2", data); err != nil {
		s.logger.Warn("failed to send info", slog.Any("error", err))
	}
}

// wakeDescribe builds the wake-model descriptor array. The attribution and
// description fields are carried from the reference implementation's
// "microwakeword-c" default entry; a wake adapter that wants to advertise
// something else can override it via Config.Wake.
func (s *Satellite) wakeDescribe() []any {
	if s.wake == nil {
		return []any{}
	}
	name := s.wake.Name()
	wakeName := s.wakeInfo.Name
	if wakeName == "" {
		wakeName = "microwakeword-c"
	}
	attrName := s.wakeInfo.AttributionName
	if attrName == "" {
		attrName = "gamelaster"
	}
	description := s.wakeInfo.Description
	if description == "" {
		description = "C compatible implementation of MicroWakeWord"
	}
	version := s.wakeInfo.Version
	if version == "" {
		version = "1.0.0"
	}
	return []any{
		map[string]any{
			"name":        wakeName,
			"attribution": map[string]any{"name": attrName, "url": "-"},
			"installed":   true,
			"description": description,
			"version":     version,
			"models": []any{
				map[string]any{
					"name":        name,
					"attribution": map[string]any{"name": "-", "url": "-"},
					"installed":   true,
					"description": "Wake word model",
					"version":     "1.0.0",
					"languages":   []any{},
					"phrase":      name,
				},
			},
		},
	}
}

// WakeInfo carries the attribution metadata for the optional wake engine
// advertised in the describe/info response.
type WakeInfo struct {
	Name            string
	AttributionName string
	Description     string
	Version         string
}

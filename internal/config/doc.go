// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config provides configuration management for drivecopy.
//
// Configuration is layered with precedence ENV > File > Defaults. The YAML
// file is decoded strictly: unknown keys are rejected.
package config

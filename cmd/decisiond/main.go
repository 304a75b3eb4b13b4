// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the entry point for the Decision Core service.
//
// The Decision Core is the decision layer in front of AI content
// generation:
// - Routes generation requests with cost estimation and caching
// - Enforces per-tenant spend caps with atomic reservations
// - Evaluates tenant automation rules with cooldown-idempotent firing
// - Computes bounded reward scores from raw metrics
// - Scans generated content against compliance phrase sets
// - Produces idempotent weekly-brief actions
//
// Usage:
//
//	./decisiond
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	CONFIG_PATH - YAML config file (default: config.yaml)
//	DATABASE_URL - PostgreSQL connection string (optional)
//	REDIS_URL - Redis connection string (optional)
//	PROVIDER_GATEWAY_URL - upstream generation gateway
package main

import (
	"axonflow/decisioncore/service"
)

func main() {
	service.Run()
}

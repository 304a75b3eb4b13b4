// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package service exposes the decision core over HTTP: routing,
// budget stats, safety scans, reward scoring, brief generation and rule
// runs.
package service

import (
	"time"

	"axonflow/decisioncore/brief"
	"axonflow/decisioncore/budget"
	"axonflow/decisioncore/cache"
	"axonflow/decisioncore/reward"
	"axonflow/decisioncore/router"
	"axonflow/decisioncore/rules"
	"axonflow/decisioncore/safety"
	"axonflow/decisioncore/shared/logger"
	"axonflow/decisioncore/usage"
)

// Service bundles the decision components behind the HTTP handlers.
type Service struct {
	router    *router.Router
	guard     budget.Guard
	engine    *rules.Engine
	rewards   *reward.Calculator
	briefs    *brief.Generator
	validator *safety.Validator
	recorder  usage.Recorder
	cache     cache.Cache
	rates     *usage.RateTable
	log       *logger.Logger
	startedAt time.Time
}

// Deps are the collaborators a Service is built from. All fields are
// required.
type Deps struct {
	Router    *router.Router
	Guard     budget.Guard
	Engine    *rules.Engine
	Rewards   *reward.Calculator
	Briefs    *brief.Generator
	Validator *safety.Validator
	Recorder  usage.Recorder
	Cache     cache.Cache
	Rates     *usage.RateTable
}

// New assembles a Service.
func New(deps Deps) *Service {
	return &Service{
		router:    deps.Router,
		guard:     deps.Guard,
		engine:    deps.Engine,
		rewards:   deps.Rewards,
		briefs:    deps.Briefs,
		validator: deps.Validator,
		recorder:  deps.Recorder,
		cache:     deps.Cache,
		rates:     deps.Rates,
		log:       logger.New("service"),
		startedAt: time.Now(),
	}
}

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

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"axonflow/decisioncore/router"
)

// httpProvider forwards generation requests to an upstream HTTP gateway
// that fronts the actual model providers. The decision core only needs
// text back; provider selection and credentials live behind the gateway.
type httpProvider struct {
	endpoint string
	client   *http.Client
}

func newHTTPProvider(endpoint string) *httpProvider {
	return &httpProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type generateRequest struct {
	TenantID string `json:"tenant_id"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Prompt   string `json:"prompt"`
	Language string `json:"language,omitempty"`
}

type generateResponse struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// Generate implements router.ProviderClient.
func (p *httpProvider) Generate(ctx context.Context, req router.Request) (string, error) {
	body, err := json.Marshal(generateRequest{
		TenantID: req.TenantID,
		Provider: req.Provider,
		Model:    req.Model,
		Prompt:   req.Prompt,
		Language: req.Language,
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call provider gateway: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("read provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider gateway returned %d: %s", resp.StatusCode, string(data))
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("provider gateway error: %s", out.Error)
	}
	return out.Content, nil
}

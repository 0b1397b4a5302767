package ads

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// LoadSnapshots reads sandbox account state from a JSON file: an array
// of campaign snapshots, or an object with a "campaigns" array.
func LoadSnapshots(path string) ([]domain.CampaignSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var snapshots []domain.CampaignSnapshot
	if err := json.Unmarshal(data, &snapshots); err == nil {
		return snapshots, nil
	}

	var wrapped struct {
		Campaigns []domain.CampaignSnapshot `json:"campaigns"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	return wrapped.Campaigns, nil
}

package transport

import (
	"encoding/json"
	"fmt"

	"github.com/relabs-tech/imu_adapter/internal/imu"
)

// Decode parses a JSON IMU payload.
func Decode(payload []byte) (imu.Sample, error) {
	var s imu.Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		return imu.Sample{}, fmt.Errorf("imu payload unmarshal: %w", err)
	}
	return s, nil
}

// Encode renders a sample as a JSON IMU payload.
func Encode(s imu.Sample) ([]byte, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("imu payload marshal: %w", err)
	}
	return payload, nil
}

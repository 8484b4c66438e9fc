// Copyright 2024 The mefwriter Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAndCounts(t *testing.T) {
	c := New("mefwriter_test")
	reg := prometheus.NewRegistry()
	c.MustRegister(reg)

	c.BlocksWritten.Inc()
	c.BlocksWritten.Inc()

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, mf := range metricFamilies {
		if mf.GetName() == "mefwriter_test_blocks_written_total" {
			found = mf
		}
	}
	require.NotNil(t, found)
	require.Equal(t, float64(2), found.Metric[0].GetCounter().GetValue())
}

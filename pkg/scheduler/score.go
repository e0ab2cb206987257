/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package scheduler

import (
	"math/rand"
	"sort"

	v1 "github.com/DarsheeeGamer/kos/pkg/apis/core/v1"
	"github.com/DarsheeeGamer/kos/pkg/quantity"
)

// Policy names the scoring function the scheduler uses (spec §4.D.2).
type Policy string

const (
	PolicySpread     Policy = "Spread"
	PolicyBinPack    Policy = "BinPack"
	PolicyRoundRobin Policy = "RoundRobin"
	PolicyRandom     Policy = "Random"
	PolicyCustom     Policy = "Custom"
)

// scoreFunc assigns a real score to node; higher wins.
type scoreFunc func(node *v1.Node, pod *v1.Pod, used usage, req podRequest) float64

func scorerFor(policy Policy) scoreFunc {
	switch policy {
	case PolicyBinPack:
		return scoreBinPack
	case PolicyRoundRobin:
		return scoreSpread
	case PolicyRandom:
		return scoreRandom
	case PolicyCustom:
		return scoreCustom
	default:
		return scoreSpread
	}
}

func scoreSpread(_ *v1.Node, _ *v1.Pod, used usage, _ podRequest) float64 {
	return -float64(used.pods)
}

func scoreBinPack(_ *v1.Node, _ *v1.Pod, used usage, _ podRequest) float64 {
	return float64(used.pods)
}

func scoreRandom(_ *v1.Node, _ *v1.Pod, _ usage, _ podRequest) float64 {
	return rand.Float64()
}

// scoreCustom sums: per-resource allocatable/requested ratio capped at
// 10, minus 0.1 per existing pod, plus 1.0 per matching label (spec
// §4.D.2).
func scoreCustom(node *v1.Node, pod *v1.Pod, used usage, req podRequest) float64 {
	score := 0.0

	if allocCPU, err := quantity.ParseCPU(node.Status.Allocatable.CPU); err == nil && req.cpu > 0 {
		score += capRatio(float64(allocCPU), float64(req.cpu))
	}
	if allocMem, err := quantity.ParseMemory(node.Status.Allocatable.Memory); err == nil && req.mem > 0 {
		score += capRatio(float64(allocMem), float64(req.mem))
	}

	score -= 0.1 * float64(used.pods)

	for k, v := range pod.Spec.NodeSelector {
		if node.ObjectMeta.Labels[k] == v {
			score += 1.0
		}
	}
	for k, v := range node.ObjectMeta.Labels {
		if pod.ObjectMeta.Labels[k] == v {
			score += 1.0
		}
	}
	return score
}

func capRatio(allocatable, requested float64) float64 {
	if requested == 0 {
		return 0
	}
	ratio := allocatable / requested
	if ratio > 10 {
		return 10
	}
	return ratio
}

// selectNode scores every candidate and returns the winner, breaking ties
// by Node name ascending (spec §4.D.3).
func selectNode(nodeList []*v1.Node, pod *v1.Pod, usageByNode map[string]usage, req podRequest, policy Policy) *v1.Node {
	if len(nodeList) == 0 {
		return nil
	}
	score := scorerFor(policy)

	type scored struct {
		node  *v1.Node
		value float64
	}
	scores := make([]scored, 0, len(nodeList))
	for _, node := range nodeList {
		scores = append(scores, scored{node: node, value: score(node, pod, usageByNode[node.Status.Address()], req)})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].value != scores[j].value {
			return scores[i].value > scores[j].value
		}
		return scores[i].node.ObjectMeta.Name < scores[j].node.ObjectMeta.Name
	})
	return scores[0].node
}

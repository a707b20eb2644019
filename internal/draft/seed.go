package draft

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sort"
)

// NewSeed 用 crypto/rand 生成一个随机种子
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("生成随机种子失败: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// pcgStream PCG 第二个种子字，固定不变，修改会改变历史抽签的复现结果
const pcgStream = 0x9e3779b97f4a7c15

// ShuffleOrder 返回参与者的抽签顺序
// 先按 userID 升序排列再用种子洗牌，结果与输入顺序无关
func ShuffleOrder(userIDs []string, seed int64) []string {
	order := make([]string, len(userIDs))
	copy(order, userIDs)
	sort.Strings(order)

	rng := rand.New(rand.NewPCG(uint64(seed), pcgStream))
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}

// roundOrder 蛇形顺序：奇数轮正序，偶数轮倒序
func roundOrder(order []string, round int) []string {
	if round%2 == 1 {
		return order
	}
	reversed := make([]string, len(order))
	for i, id := range order {
		reversed[len(order)-1-i] = id
	}
	return reversed
}

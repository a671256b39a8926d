package poll

import "sort"

// ComputeResults 使用即时决选 (Instant-Runoff Voting) 对排序选票计票。
// 这是一个纯函数：不读写任何状态，相同输入总是产生字节一致的输出，
// 与map的迭代顺序无关。
//
// 每轮统计各在场候选获得的首选票。某候选获得严格过半的有效票，
// 或只剩一名候选时，该候选获胜；否则淘汰本轮得票最少的候选
// （平票按提名ID升序淘汰），其选票在下一轮流向各自的下一偏好。
// 所有偏好都已被淘汰的选票视为废票，不再计入有效票数。
func ComputeResults(rankings map[string][]string, nominations map[string]Nomination, votesPerVoter int) Results {
	// 候选人按ID升序排列，保证确定性
	candidates := make([]string, 0, len(nominations))
	for nominationID := range nominations {
		candidates = append(candidates, nominationID)
	}
	sort.Strings(candidates)

	if len(candidates) == 0 {
		return Results{}
	}

	// 整理选票：丢弃引用未知提名的条目（提名可能在选票提交后被管理员移除），
	// 去重并截断到每张选票的配额以内
	voterIDs := make([]string, 0, len(rankings))
	for userID := range rankings {
		voterIDs = append(voterIDs, userID)
	}
	sort.Strings(voterIDs)

	ballots := make([][]string, 0, len(rankings))
	for _, userID := range voterIDs {
		ballot := make([]string, 0, votesPerVoter)
		seen := make(map[string]bool)
		for _, nominationID := range rankings[userID] {
			if len(ballot) >= votesPerVoter {
				break
			}
			if _, ok := nominations[nominationID]; !ok {
				continue
			}
			if seen[nominationID] {
				continue
			}
			seen[nominationID] = true
			ballot = append(ballot, nominationID)
		}
		if len(ballot) > 0 {
			ballots = append(ballots, ballot)
		}
	}

	// 没有任何有效选票：无法决出胜者，所有候选按ID升序标记为无票（轮次0）
	if len(ballots) == 0 {
		results := make(Results, 0, len(candidates))
		for i, nominationID := range candidates {
			results = append(results, Result{
				NominationID: nominationID,
				Text:         nominations[nominationID].Text,
				Rank:         i + 1,
				Round:        0,
			})
		}
		return results
	}

	// 唯一候选：无需任何决选轮次，直接获胜
	if len(candidates) == 1 {
		only := candidates[0]
		return Results{{
			NominationID: only,
			Text:         nominations[only].Text,
			Rank:         1,
			Round:        0,
		}}
	}

	eliminatedRound := make(map[string]int) // nominationID -> 被淘汰的轮次
	eliminationOrder := make([]string, 0, len(candidates))

	for round := 1; ; round++ {
		remaining := make([]string, 0, len(candidates))
		for _, c := range candidates {
			if _, out := eliminatedRound[c]; !out {
				remaining = append(remaining, c)
			}
		}

		// 统计本轮各在场候选的首选票；已废票的选票不计入有效票数
		counts := make(map[string]int, len(remaining))
		activeBallots := 0
		for _, ballot := range ballots {
			for _, nominationID := range ballot {
				if _, out := eliminatedRound[nominationID]; !out {
					counts[nominationID]++
					activeBallots++
					break
				}
			}
		}

		// 胜者判定：只剩一名候选，或某候选获得严格过半的有效票
		var winner string
		if len(remaining) == 1 {
			winner = remaining[0]
		} else {
			for _, c := range remaining {
				if counts[c]*2 > activeBallots {
					winner = c
					break
				}
			}
		}

		if winner != "" {
			return assembleResults(winner, round, remaining, counts,
				eliminationOrder, eliminatedRound, nominations)
		}

		// 淘汰本轮得票最少的候选；平票时票数相同者中ID最小的先被淘汰
		loser := remaining[0]
		for _, c := range remaining[1:] {
			if counts[c] < counts[loser] {
				loser = c
			}
		}
		eliminatedRound[loser] = round
		eliminationOrder = append(eliminationOrder, loser)
	}
}

// assembleResults 把胜者、存活候选和淘汰序列组装成完整的名次表。
// 顺序为：胜者，其余存活候选按本轮票数降序（平票按ID升序），
// 然后是被淘汰的候选按淘汰顺序倒序（最后被淘汰者名次最高）。
func assembleResults(winner string, finalRound int, remaining []string, counts map[string]int,
	eliminationOrder []string, eliminatedRound map[string]int, nominations map[string]Nomination) Results {

	results := make(Results, 0, len(eliminationOrder)+len(remaining))
	results = append(results, Result{
		NominationID: winner,
		Text:         nominations[winner].Text,
		Rank:         1,
		Round:        finalRound,
	})

	survivors := make([]string, 0, len(remaining))
	for _, c := range remaining {
		if c != winner {
			survivors = append(survivors, c)
		}
	}
	// remaining 本身按ID升序，稳定排序后平票者保持ID升序
	sort.SliceStable(survivors, func(i, j int) bool {
		return counts[survivors[i]] > counts[survivors[j]]
	})
	for _, c := range survivors {
		results = append(results, Result{
			NominationID: c,
			Text:         nominations[c].Text,
			Rank:         len(results) + 1,
			Round:        finalRound,
		})
	}

	for i := len(eliminationOrder) - 1; i >= 0; i-- {
		c := eliminationOrder[i]
		results = append(results, Result{
			NominationID: c,
			Text:         nominations[c].Text,
			Rank:         len(results) + 1,
			Round:        eliminatedRound[c],
		})
	}
	return results
}

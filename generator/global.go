package generator

import (
	"fmt"
	"strconv"
)

const (
	assignLine         = "scoreboard players set -fn_score_holder- -ns-_function_id -id-"
	scheduleLine       = "execute if score launch -ns-_function_id matches -id- run function -ns-:-orig_ns-/-orig/fn-/scheduled"
	installResetLine   = "scoreboard players set -fn_score_holder- -ns-_valid 0"
	installCheckLine   = "function -ns-:-orig_ns-/-orig/fn-/validate"
	selectedResetLine  = "tag @e[tag=-ns-_selected_entity] remove -ns-_selected_entity"
	resumeDispatchLine = "execute unless score break -ns-_global matches 1 if entity @e[type=area_effect_cloud,tag=-ns-_breakpoint,tag=-orig_fn_tag-] run function -ns-:-orig_ns-/-orig/fn-/resume"
	scoreLine          = "execute positioned -log_pos- run setblock ~ ~-offset- ~ chain_command_block[facing=up]{auto:1b,CustomName:'{\"text\":\"-ns-_score\"}',Command:\"scoreboard players get @e[tag=-ns-_selected_entity,limit=1] -objective-\"}"
	scoresEndLine      = "execute positioned -log_pos- run setblock ~ ~-offset- ~ chain_command_block[facing=up]{auto:1b,CustomName:'{\"text\":\"-ns-_scores_end\"}',Command:\"scoreboard players get break -ns-_global\"}"
)

// 注入命令和日志中使用的名称
const (
	ScoreExecutor     = "_score"
	ScoresEndExecutor = "_scores_end"
	ExitTag           = "_exit"
)

// globalUnits 所有函数共用的生成单元
func (g *generator) globalUnits(objectives []string) []unit {
	x, y, z := g.cfg.LogPosition[0], g.cfg.LogPosition[1], g.cfg.LogPosition[2]
	// log_scores在日志位置上方依次放置命令方块
	p := g.base.with("-log_column-", fmt.Sprintf("%d %d %d %d %d %d", x, y, z, x, y+len(objectives)+1, z))

	install := p.lines("global/install")
	var assign, schedule, dispatch []string
	dispatch = append(dispatch, p.expand(selectedResetLine))
	for _, name := range g.names {
		fp := g.functionPlaceholders(name).with("-id-", strconv.Itoa(g.ids[name]))
		assign = append(assign, fp.expand(assignLine))
		schedule = append(schedule, fp.expand(scheduleLine))
		install = append(install, fp.expand(installResetLine), fp.expand(installCheckLine))
		dispatch = append(dispatch, fp.expand(resumeDispatchLine))
	}

	logScores := p.lines("global/log_scores")
	for i, objective := range objectives {
		logScores = append(logScores, p.with(
			"-offset-", strconv.Itoa(i+1),
			"-objective-", objective,
		).expand(scoreLine))
	}
	logScores = append(logScores, p.with("-offset-", strconv.Itoa(len(objectives)+1)).expand(scoresEndLine))

	return []unit{
		{name: "install", lines: install},
		{name: "uninstall", lines: p.lines("global/uninstall")},
		{name: "id/assign", lines: assign},
		{name: "schedule", lines: schedule},
		{name: "log_scores", lines: logScores},
		{name: "suspend", lines: p.lines("global/suspend")},
		{name: "resume_self", lines: p.lines("global/resume_self")},
		{name: "resume_dispatch", lines: dispatch},
		{name: "on_exit", lines: p.lines("global/on_exit")},
	}
}

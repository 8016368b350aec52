// Package mc_debugger 调试会话：维护断点，按需重新生成调试数据包，把服务器日志翻译成调试事件。
package mc_debugger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fansqz/mcfunction-debugger/constants"
	. "github.com/fansqz/mcfunction-debugger/debugger"
	"github.com/fansqz/mcfunction-debugger/debugger/connection"
	e "github.com/fansqz/mcfunction-debugger/error"
	"github.com/fansqz/mcfunction-debugger/generator"
	"github.com/fansqz/mcfunction-debugger/generator/partition"
	"github.com/fansqz/mcfunction-debugger/parser"
	"github.com/fansqz/mcfunction-debugger/parser/command"
	"github.com/fansqz/mcfunction-debugger/parser/command/argument"
	"github.com/fansqz/mcfunction-debugger/utils"
	"github.com/fansqz/mcfunction-debugger/utils/gosync"
)

const (
	// QueryTimeout 等待服务器返回查询结果的时间
	QueryTimeout = time.Second * 10

	stackExecutor    = "_stack"
	stackEndExecutor = "_stack_end"
	// unsetScore 分数不存在时显示的值
	unsetScore = "none"
)

// stopState 一次暂停的状态，栈帧和分数只查询一次
type stopState struct {
	name     argument.ResourceLocation
	position partition.Position
	reason   constants.StoppedReasonType
	frames   []*StackFrame
	scores   []*Variable
}

type MCDebugger struct {
	option   *StartOption
	parser   *command.Parser
	conn     connection.Connection
	callback NotificationCallback
	entry    argument.ResourceLocation

	// functions 当前解析的源文件
	functions  map[argument.ResourceLocation]*parser.Function
	objectives []string

	// breakpoints 用户设置的断点
	breakpoints *BreakpointSet
	// generated 服务器上加载的数据包对应的断点集合
	generated string
	// stale 源文件已经重新解析，但是服务器上还是旧的数据包
	stale          bool
	sourceModified atomic.Bool

	stopped   *stopState
	stepping  bool
	stepDepth int

	configured bool
	scheduled  bool

	// 调试的状态管理
	StatusManager *utils.StatusManager
	// 引用工具
	ReferenceUtil *ReferenceUtil

	events         chan connection.LogEvent
	removeListener func()
	cleanupOnce    sync.Once
	terminatedSent bool
}

// NewMCDebugger 创建会话，p在整个会话中复用
func NewMCDebugger(p *command.Parser) *MCDebugger {
	d := &MCDebugger{
		parser:        p,
		breakpoints:   NewBreakpointSet(),
		StatusManager: utils.NewStatusManager(),
		ReferenceUtil: NewReferenceUtil(),
		callback:      func(interface{}) {},
	}
	d.StatusManager.Set(utils.Initialized)
	return d
}

func (d *MCDebugger) namespace() string {
	return d.option.Generator.Namespace
}

func (d *MCDebugger) Launch(ctx context.Context, option *StartOption) error {
	if !d.StatusManager.Is(utils.Initialized) {
		return e.ErrAlreadyLaunched
	}
	if option.Connection == nil || option.Output == "" || option.Datapack == "" {
		return e.ErrInvalidLaunchArguments
	}
	entry, err := argument.ParseResourceLocation(option.Function)
	if err != nil {
		return fmt.Errorf("%w: function %q", e.ErrInvalidLaunchArguments, option.Function)
	}
	if err = option.Generator.Validate(); err != nil {
		return fmt.Errorf("%w: %v", e.ErrInvalidLaunchArguments, err)
	}
	d.option = option
	d.conn = option.Connection
	d.entry = entry
	if option.Callback != nil {
		d.callback = option.Callback
	}

	if err = d.loadFunctions(ctx); err != nil {
		return err
	}
	if _, ok := d.functions[entry]; !ok {
		return fmt.Errorf("%w: %s", e.ErrFunctionNotFound, entry)
	}

	ch, remove := d.conn.AddListener()
	d.removeListener = remove
	d.events = make(chan connection.LogEvent, 16)
	gosync.GoNamed(context.Background(), "forward runtime events", func(ctx context.Context) {
		d.forward(ch)
	}, func(*gosync.PanicError) {
		remove()
	})

	if err = d.generate(ctx, d.effectiveBreakpoints()); err != nil {
		return err
	}
	ns := d.namespace()
	for _, c := range []string{
		"reload",
		fmt.Sprintf(`datapack enable "file/%s"`, filepath.Base(option.Output)),
		"function " + ns + ":install",
	} {
		if err = d.inject(ctx, c); err != nil {
			return err
		}
	}
	d.StatusManager.Set(utils.Launched)
	logrus.Infof("[MCDebugger] launched %s, output %s", entry, option.Output)
	if d.configured {
		return d.schedule(ctx)
	}
	return nil
}

// forward 只转发调试数据包输出的日志，其余的直接丢弃，避免阻塞连接的广播
func (d *MCDebugger) forward(ch <-chan connection.LogEvent) {
	defer close(d.events)
	ns := d.namespace()
	for event := range ch {
		if event.Executor == ns {
			d.events <- event
		}
	}
}

func (d *MCDebugger) ConfigurationDone(ctx context.Context) error {
	d.configured = true
	if d.StatusManager.Is(utils.Launched) && !d.scheduled {
		return d.schedule(ctx)
	}
	return nil
}

// schedule 在下一个tick执行入口函数
func (d *MCDebugger) schedule(ctx context.Context) error {
	if err := d.update(ctx); err != nil {
		return err
	}
	ns := d.namespace()
	id := generator.FunctionIDs(d.functions)[d.entry]
	err := d.conn.Inject(ctx, []connection.Command{
		connection.NewCommand(ns, fmt.Sprintf("scoreboard players set launch %s_function_id %d", ns, id)),
		connection.NewCommand(ns, "function "+ns+":schedule"),
	})
	if err != nil {
		return d.connectionError(err)
	}
	d.scheduled = true
	d.StatusManager.Transfer(utils.Running, utils.Launched)
	return nil
}

func (d *MCDebugger) SetBreakpoints(ctx context.Context, source string, lines []int) ([]*Breakpoint, error) {
	if !d.StatusManager.Is(utils.Launched, utils.Stopped, utils.Running) {
		return nil, e.ErrNotLaunched
	}
	if d.sourceModified.Swap(false) {
		if err := d.loadFunctions(ctx); err != nil {
			return nil, err
		}
		d.stale = true
	}

	result := make([]*Breakpoint, len(lines))
	name, ok := parser.FunctionName(filepath.Join(d.option.Datapack, "data"), source)
	if !ok {
		for i, line := range lines {
			result[i] = NewBreakpoint(line, false, "not a function of the datapack")
		}
		return result, nil
	}
	fn := d.functions[name]
	breakpoints := partition.Breakpoints{}
	for i, line := range lines {
		verified, message := verifyLine(fn, line)
		kind := partition.BreakpointKind{Type: partition.Normal}
		if !verified {
			kind.Type = partition.Invalid
		}
		breakpoints[partition.Position{Line: line, InLine: partition.Breakpoint}] = kind
		result[i] = NewBreakpoint(line, verified, message)
	}

	old := d.breakpoints.Get(name)
	d.breakpoints.Set(name, breakpoints)
	if d.stale && onlyMoved(old, breakpoints) {
		// 重新生成推迟到下一次恢复执行
		return result, d.moveBreakpoints(ctx, name, old, breakpoints)
	}
	return result, d.update(ctx)
}

// verifyLine 只有能解析的命令和静态断点可以设置断点
func verifyLine(fn *parser.Function, line int) (bool, string) {
	if fn == nil {
		return false, "function is not part of the datapack"
	}
	if line < 1 || line > len(fn.Lines) {
		return false, "line is out of range"
	}
	switch l := fn.Lines[line-1].Line.(type) {
	case parser.Empty, parser.Comment:
		return false, "not a command"
	case parser.OtherCommand:
		if l.Err != nil {
			return false, l.Err.Error()
		}
	}
	return true, ""
}

// onlyMoved 有效断点数量不变，只是位置变化
func onlyMoved(old partition.Breakpoints, breakpoints partition.Breakpoints) bool {
	old, breakpoints = verified(old), verified(breakpoints)
	if len(old) == 0 || len(old) != len(breakpoints) {
		return false
	}
	for position := range old {
		if _, ok := breakpoints[position]; !ok {
			return true
		}
	}
	return false
}

// verified 去掉无法验证的断点，它们不会出现在生成的数据包中
func verified(breakpoints partition.Breakpoints) partition.Breakpoints {
	result := make(partition.Breakpoints, len(breakpoints))
	for position, kind := range breakpoints {
		if kind.Type != partition.Invalid {
			result[position] = kind
		}
	}
	return result
}

// moveBreakpoints 重命名服务器上引用旧位置的标签
func (d *MCDebugger) moveBreakpoints(ctx context.Context, name argument.ResourceLocation,
	old partition.Breakpoints, breakpoints partition.Breakpoints) error {
	ns := d.namespace()
	from, to := SortedPositions(verified(old)), SortedPositions(verified(breakpoints))
	var commands []connection.Command
	for i := range from {
		if from[i] == to[i] {
			continue
		}
		oldTag := generator.PositionTag(ns, name, from[i])
		newTag := generator.PositionTag(ns, name, to[i])
		commands = append(commands,
			connection.NewCommand(ns, fmt.Sprintf("tag @e[tag=%s] add %s", oldTag, newTag)),
			connection.NewCommand(ns, fmt.Sprintf("tag @e[tag=%s] remove %s", oldTag, oldTag)),
		)
		if d.stopped != nil && d.stopped.name == name && d.stopped.position == from[i] {
			d.stopped.position = to[i]
		}
	}
	if len(commands) == 0 {
		return nil
	}
	logrus.Infof("[MCDebugger] moved %d breakpoints of %s", len(commands)/2, name)
	if err := d.conn.Inject(ctx, commands); err != nil {
		return d.connectionError(err)
	}
	return nil
}

func (d *MCDebugger) Continue(ctx context.Context) error {
	return d.resume(ctx, nil)
}

func (d *MCDebugger) StepOver(ctx context.Context) error {
	step := constants.StepOver
	return d.resume(ctx, &step)
}

func (d *MCDebugger) StepIn(ctx context.Context) error {
	step := constants.StepIn
	return d.resume(ctx, &step)
}

func (d *MCDebugger) StepOut(ctx context.Context) error {
	step := constants.StepOut
	return d.resume(ctx, &step)
}

// resume 从暂停的位置继续执行，step不为nil时在目标深度以内的下一个位置暂停
func (d *MCDebugger) resume(ctx context.Context, step *constants.StepType) error {
	if !d.StatusManager.Is(utils.Stopped) {
		return e.ErrNotStopped
	}
	d.stepping = false
	if step != nil {
		depth, err := d.currentDepth(ctx)
		if err != nil {
			return err
		}
		d.stepping = true
		d.stepDepth = depth + step.DepthOffset()
	}
	if err := d.update(ctx); err != nil {
		return err
	}
	if err := d.inject(ctx, "function "+d.namespace()+":resume_self"); err != nil {
		return err
	}
	d.stopped = nil
	d.StatusManager.Transfer(utils.Running, utils.Stopped)
	return nil
}

// currentDepth 暂停位置所在的调用深度
func (d *MCDebugger) currentDepth(ctx context.Context) (int, error) {
	frames, err := d.stackTrace(ctx)
	if err != nil {
		return 0, err
	}
	if len(frames) == 0 {
		return 0, nil
	}
	return frames[0].ID, nil
}

// effectiveBreakpoints 用户断点加上单步断点，以及暂停位置上的一次性断点
func (d *MCDebugger) effectiveBreakpoints() *BreakpointSet {
	set := d.breakpoints.Clone()
	if d.stepping {
		kind := partition.BreakpointKind{
			Type:      partition.Step,
			Condition: "if score current -ns-_depth matches .." + strconv.Itoa(d.stepDepth),
		}
		for name, fn := range d.functions {
			for _, position := range stepPositions(fn) {
				if !set.Has(name, position) {
					set.Add(name, position, kind)
				}
			}
		}
	}
	// 暂停位置必须保留为可以恢复的边界，静态断点本身就是边界
	if d.stopped != nil && !set.Has(d.stopped.name, d.stopped.position) &&
		!d.isStaticBreakpoint(d.stopped.name, d.stopped.position) {
		set.Add(d.stopped.name, d.stopped.position, partition.BreakpointKind{Type: partition.Continue})
	}
	return set
}

// stepPositions 单步执行可以暂停的位置：每条命令之前，以及每个函数调用返回之后
func stepPositions(fn *parser.Function) []partition.Position {
	var positions []partition.Position
	for _, line := range fn.Lines {
		switch line.Line.(type) {
		case parser.FunctionCall:
			positions = append(positions,
				partition.Position{Line: line.Number, InLine: partition.Breakpoint},
				partition.Position{Line: line.Number, InLine: partition.AfterFunction})
		case parser.Schedule, parser.OtherCommand:
			positions = append(positions, partition.Position{Line: line.Number, InLine: partition.Breakpoint})
		}
	}
	return positions
}

// update 断点集合或源文件变化时重新生成数据包并reload
func (d *MCDebugger) update(ctx context.Context) error {
	if d.sourceModified.Swap(false) {
		if err := d.loadFunctions(ctx); err != nil {
			return err
		}
		d.stale = true
	}
	set := d.effectiveBreakpoints()
	if !d.stale && set.Key() == d.generated {
		return nil
	}
	if err := d.generate(ctx, set); err != nil {
		return err
	}
	return d.inject(ctx, "reload")
}

func (d *MCDebugger) loadFunctions(ctx context.Context) error {
	functions, err := parser.LoadDatapack(ctx, d.parser, d.option.Datapack)
	if err != nil {
		return err
	}
	d.functions = functions
	return nil
}

// generate 生成数据包并写入输出目录
func (d *MCDebugger) generate(ctx context.Context, set *BreakpointSet) error {
	out, err := generator.Generate(ctx, d.option.Generator, d.functions, set.Map())
	if err != nil {
		return err
	}
	if err = out.Write(d.option.Output); err != nil {
		return err
	}
	d.generated = set.Key()
	d.objectives = out.Objectives
	d.stale = false
	return nil
}

func (d *MCDebugger) inject(ctx context.Context, command string) error {
	if err := d.conn.Inject(ctx, []connection.Command{connection.NewCommand(d.namespace(), command)}); err != nil {
		return d.connectionError(err)
	}
	return nil
}

// connectionError 注入失败说明与服务器的连接已经不可用，会话结束；只有请求被取消时会话继续
func (d *MCDebugger) connectionError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if !errors.Is(err, e.ErrConnectionClosed) {
		err = fmt.Errorf("%w: %w", e.ErrConnectionClosed, err)
	}
	logrus.Errorf("[MCDebugger] connection closed, err = %v", err)
	d.StatusManager.Set(utils.Terminated)
	d.sendTerminated()
	return err
}

func (d *MCDebugger) sendTerminated() {
	if d.terminatedSent {
		return
	}
	d.terminatedSent = true
	d.callback(NewTerminatedEvent())
}

func (d *MCDebugger) Events() <-chan connection.LogEvent {
	return d.events
}

func (d *MCDebugger) HandleEvent(ctx context.Context, event connection.LogEvent) error {
	tag, ok := ParseAddedTag(event.Output)
	if !ok {
		return nil
	}
	ns := d.namespace()
	if tag == ns+generator.ExitTag {
		return d.onExit()
	}
	name, position, ok := generator.ParsePositionTag(ns, tag)
	if !ok {
		logrus.Debugf("[MCDebugger] ignore tag %s", tag)
		return nil
	}
	if !d.StatusManager.Is(utils.Running) {
		logrus.Warnf("[MCDebugger] stopped at %s %s while not running", name, position)
		return nil
	}
	d.stopped = &stopState{name: name, position: position, reason: d.stopReason(name, position)}
	d.stepping = false
	d.StatusManager.Set(utils.Stopped)
	if _, err := d.stackTrace(ctx); err != nil {
		return err
	}
	path := ""
	if fn, ok := d.functions[name]; ok {
		path = fn.Path
	}
	logrus.Infof("[MCDebugger] stopped at %s %s, reason = %s", name, position, d.stopped.reason)
	d.callback(NewStoppedEvent(d.stopped.reason, path, position.Line))
	return nil
}

func (d *MCDebugger) stopReason(name argument.ResourceLocation, position partition.Position) constants.StoppedReasonType {
	if kind, ok := d.breakpoints.Get(name)[position]; ok && kind.Type == partition.Normal {
		return constants.BreakpointStopped
	}
	if d.isStaticBreakpoint(name, position) {
		return constants.BreakpointStopped
	}
	return constants.StepStopped
}

// isStaticBreakpoint 位置是否是函数中的# breakpoint行
func (d *MCDebugger) isStaticBreakpoint(name argument.ResourceLocation, position partition.Position) bool {
	fn, ok := d.functions[name]
	if !ok || position.InLine != partition.Breakpoint || position.Line < 1 || position.Line > len(fn.Lines) {
		return false
	}
	_, static := fn.Lines[position.Line-1].Line.(parser.Breakpoint)
	return static
}

func (d *MCDebugger) onExit() error {
	logrus.Infof("[MCDebugger] %s exited", d.entry)
	d.stopped = nil
	d.stepping = false
	d.StatusManager.Set(utils.Terminated)
	d.callback(NewExitedEvent(0, ""))
	d.sendTerminated()
	return nil
}

func (d *MCDebugger) GetStackTrace(ctx context.Context) ([]*StackFrame, error) {
	if !d.StatusManager.Is(utils.Stopped) {
		return nil, e.ErrNotStopped
	}
	return d.stackTrace(ctx)
}

// stackTrace 查询所有调用帧实体的深度和名称，深度大的在前
func (d *MCDebugger) stackTrace(ctx context.Context) ([]*StackFrame, error) {
	if d.stopped == nil {
		return nil, e.ErrNotStopped
	}
	if d.stopped.frames != nil {
		return d.stopped.frames, nil
	}
	ns := d.namespace()
	outputs, err := d.query(ctx, []connection.Command{
		connection.NewCommand(ns+stackExecutor, fmt.Sprintf(
			"execute as @e[type=area_effect_cloud,tag=%s_function_call] run scoreboard players get @s %s_depth", ns, ns)),
		connection.NewCommand(ns+stackEndExecutor, fmt.Sprintf("scoreboard players get current %s_depth", ns)),
	}, ns+stackExecutor, ns+stackEndExecutor)
	if err != nil {
		return nil, err
	}
	frames := make([]*StackFrame, 0, len(outputs))
	for _, output := range outputs {
		score, ok := ParseScore(output)
		if !ok {
			continue
		}
		name, line, column, ok := ParseFrameName(score.Holder)
		if !ok {
			logrus.Warnf("[MCDebugger] unknown frame %s", score.Holder)
			continue
		}
		frame := &StackFrame{ID: score.Value, Name: name.String(), Line: line, Column: column}
		if fn, ok := d.functions[name]; ok {
			frame.Path = fn.Path
		}
		frames = append(frames, frame)
	}
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].ID > frames[j].ID
	})
	d.stopped.frames = frames
	return frames, nil
}

// query 注入命令并收集executor的输出，直到endExecutor输出为止
func (d *MCDebugger) query(ctx context.Context, commands []connection.Command, executor string, endExecutor string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()
	ch, remove := d.conn.AddListener()
	defer remove()
	if err := d.conn.Inject(ctx, commands); err != nil {
		return nil, d.connectionError(err)
	}
	var outputs []string
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, e.ErrCancelled
			}
			return nil, ctx.Err()
		case event, ok := <-ch:
			if !ok {
				return nil, d.connectionError(e.ErrConnectionClosed)
			}
			switch event.Executor {
			case executor:
				outputs = append(outputs, event.Output)
			case endExecutor:
				return outputs, nil
			}
		}
	}
}

func (d *MCDebugger) GetScopes(ctx context.Context, frameID int) ([]*Scope, error) {
	frames, err := d.GetStackTrace(ctx)
	if err != nil {
		return nil, err
	}
	// 只知道暂停时的执行者，分数只对最内层的栈帧有意义
	if len(frames) == 0 || frames[0].ID != frameID {
		return []*Scope{}, nil
	}
	return []*Scope{{
		Name:      constants.ScopeScores,
		Reference: d.ReferenceUtil.GetScopesReference(frameID),
	}}, nil
}

func (d *MCDebugger) GetVariables(ctx context.Context, reference int) ([]*Variable, error) {
	if !d.StatusManager.Is(utils.Stopped) {
		return nil, e.ErrNotStopped
	}
	if !d.ReferenceUtil.CheckIsScopeReference(reference) {
		return nil, e.ErrUnknownReference
	}
	frames, err := d.stackTrace(ctx)
	if err != nil {
		return nil, err
	}
	frameID := d.ReferenceUtil.GetFrameIDByScopeReference(reference)
	if len(frames) == 0 || frames[0].ID != frameID {
		return nil, e.ErrUnknownReference
	}
	return d.scores(ctx)
}

// scores 执行者实体在数据包引用的所有记分板上的分数
func (d *MCDebugger) scores(ctx context.Context) ([]*Variable, error) {
	if d.stopped.scores != nil {
		return d.stopped.scores, nil
	}
	ns := d.namespace()
	outputs, err := d.query(ctx, []connection.Command{
		connection.NewCommand(ns, "function "+ns+":log_scores"),
	}, ns+generator.ScoreExecutor, ns+generator.ScoresEndExecutor)
	if err != nil {
		return nil, err
	}
	variables := make([]*Variable, 0, len(d.objectives))
	for i, objective := range d.objectives {
		value := unsetScore
		if i < len(outputs) {
			if score, ok := ParseScore(outputs[i]); ok {
				value = strconv.Itoa(score.Value)
			}
		}
		variables = append(variables, &Variable{Name: objective, Type: "int", Value: &value})
	}
	d.stopped.scores = variables
	return variables, nil
}

func (d *MCDebugger) Terminate(ctx context.Context) error {
	if d.option == nil {
		d.StatusManager.Set(utils.Terminated)
		return nil
	}
	var err error
	d.cleanupOnce.Do(func() {
		err = d.cleanup(ctx)
	})
	d.StatusManager.Set(utils.Terminated)
	d.sendTerminated()
	return err
}

// cleanup 卸载数据包，删除输出目录并关闭连接
func (d *MCDebugger) cleanup(ctx context.Context) error {
	ns := d.namespace()
	for _, c := range []string{
		"function " + ns + ":uninstall",
		fmt.Sprintf(`datapack disable "file/%s"`, filepath.Base(d.option.Output)),
	} {
		if err := d.conn.Inject(ctx, []connection.Command{connection.NewCommand(ns, c)}); err != nil {
			logrus.Warnf("[MCDebugger] %s fail, err = %v", c, err)
			break
		}
	}
	if d.removeListener != nil {
		d.removeListener()
	}
	err := os.RemoveAll(d.option.Output)
	if closeErr := d.conn.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (d *MCDebugger) NotifySourceModified() {
	d.sourceModified.Store(true)
}

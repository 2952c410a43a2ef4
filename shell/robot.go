package shell

import (
	"context"
	"errors"
	"fmt"

	"github.com/domino14/boardbot/config"
	"github.com/domino14/boardbot/robot"
)

// robotCmd drives a background robot on the shell's game:
//
//	robot go      start thinking about the side to move
//	robot take    play the move the robot found
//	robot stop | pause | resume | status
func (sc *ShellController) robotCmd(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if err := sc.requireGame(); err != nil {
		return nil, err
	}
	sub := "status"
	if len(cmd.args) > 0 {
		sub = cmd.args[0]
	}
	switch sub {
	case "go", "start":
		if sc.board.GameOver() {
			return nil, errors.New("the game is over")
		}
		if err := sc.robotTurn(ctx); err != nil {
			return nil, err
		}
		return msg(fmt.Sprintf("robot thinking for player %d", sc.board.WhoseTurn())), nil
	case "take":
		r := sc.currentRobot()
		if r == nil {
			return nil, errors.New("no robot running")
		}
		m, ok := r.Result()
		if !ok {
			return nil, fmt.Errorf("no move ready; robot is %s", r.State())
		}
		return sc.playMove(m)
	case "stop":
		if r := sc.currentRobot(); r != nil {
			r.Stop()
		}
		return msg("robot stopped"), nil
	case "pause":
		r := sc.currentRobot()
		if r == nil {
			return nil, errors.New("no robot running")
		}
		r.Pause()
		return msg("robot paused"), nil
	case "resume":
		r := sc.currentRobot()
		if r == nil {
			return nil, errors.New("no robot running")
		}
		r.Resume()
		return msg("robot resumed"), nil
	case "status":
		r := sc.currentRobot()
		if r == nil {
			return msg("no robot"), nil
		}
		return msg(fmt.Sprintf("robot %s, %.0f%% done", r.State(), r.Progress()*100)), nil
	case "quit":
		sc.stopRobot()
		return msg("robot quit"), nil
	}
	return nil, fmt.Errorf("unknown robot subcommand %q", sub)
}

func (sc *ShellController) currentRobot() *robot.Runner {
	sc.robotMu.Lock()
	defer sc.robotMu.Unlock()
	return sc.robot
}

// robotTurn asks the robot for a move, bringing its worker up first if it
// is not running.
func (sc *ShellController) robotTurn(ctx context.Context) error {
	sc.robotMu.Lock()
	defer sc.robotMu.Unlock()
	player := sc.board.WhoseTurn()
	if sc.robot == nil {
		opts := append(sc.config.RobotOptions(),
			robot.WithRepetitions(sc.positions),
			robot.WithErrorReporter(func(err error) { sc.showError(err) }))
		sc.robot = robot.New(sc.board, sc.evaluator, opts...)
	}
	err := sc.robot.DoTurnStep(player)
	if !errors.Is(err, robot.ErrNotInitialized) && !errors.Is(err, robot.ErrQuit) {
		return err
	}
	if err := sc.robot.Init(ctx); err != nil {
		return err
	}
	if sc.robotCh != nil {
		close(sc.robotCh)
	}
	sc.robotCh = make(chan struct{})
	go sc.watchRobot(sc.robot.Results(), sc.robotCh)
	if err := sc.robot.Start(sc.config.GetBool(config.ConfigRobotContinuous), player); err != nil {
		return err
	}
	return sc.robot.DoTurnStep(player)
}

func (sc *ShellController) watchRobot(results <-chan robot.Outcome, stop <-chan struct{}) {
	for {
		select {
		case o := <-results:
			if o.Err != nil {
				// the error reporter already showed it
				continue
			}
			sc.showMessage(fmt.Sprintf("robot suggests %s for player %d; `robot take` plays it", o.Move, o.Player))
		case <-stop:
			return
		}
	}
}

// stopRobot ends the robot's worker, if there is one.
func (sc *ShellController) stopRobot() {
	sc.robotMu.Lock()
	defer sc.robotMu.Unlock()
	if sc.robot == nil {
		return
	}
	sc.robot.Quit()
	sc.robot = nil
	if sc.robotCh != nil {
		close(sc.robotCh)
		sc.robotCh = nil
	}
}

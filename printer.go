package pwmake

import (
	"fmt"
	"io"

	pb "github.com/schollz/progressbar/v3"
)

// BasicPrinter echoes each command on its own line, make-style.
type BasicPrinter struct {
	w io.Writer
}

func (p *BasicPrinter) SetSteps(int) {}
func (p *BasicPrinter) Done(string)  {}

func (p *BasicPrinter) Print(cmd, target string, step int) {
	fmt.Fprintln(p.w, cmd)
}

// StepPrinter prefixes each command with its step count.
type StepPrinter struct {
	w     io.Writer
	steps int
}

func (p *StepPrinter) SetSteps(steps int) {
	p.steps = steps
}
func (p *StepPrinter) Done(string) {}

func (p *StepPrinter) Print(cmd, target string, step int) {
	fmt.Fprintf(p.w, "[%d/%d] %s\n", step, p.steps, cmd)
}

// ProgressPrinter renders a progress bar over the targets being built.
type ProgressPrinter struct {
	w            io.Writer
	bar          *pb.ProgressBar
	showCommands bool
}

func (p *ProgressPrinter) SetSteps(steps int) {
	p.bar = pb.NewOptions64(int64(steps),
		pb.OptionSetWriter(p.w),
		pb.OptionSetWidth(10),
		pb.OptionShowCount(),
		pb.OptionFullWidth(),
		pb.OptionSetPredictTime(false),
		pb.OptionSetDescription("Running"),
		pb.OptionOnCompletion(func() {
			fmt.Fprint(p.w, "\n")
		}),
		pb.OptionSetTheme(pb.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func (p *ProgressPrinter) Print(cmd, target string, step int) {
	if p.showCommands {
		p.bar.Clear()
		fmt.Fprint(p.w, "\r")
		fmt.Fprintln(p.w, cmd)
		p.bar.RenderBlank()
	}
}

func (p *ProgressPrinter) Done(target string) {
	p.bar.Describe("Ran " + target)
	p.bar.Add(1)
}

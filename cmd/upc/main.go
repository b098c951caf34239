// Command upc reads a planning problem (PDDL or JSON), optionally
// compiles it down to a target feature set, and writes the result back
// out as PDDL or YAML. It can also validate a plan against the problem.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/aiplan4eu/unified-planning-sub004/engine"
	"github.com/aiplan4eu/unified-planning-sub004/jsonio"
	"github.com/aiplan4eu/unified-planning-sub004/model"
	"github.com/aiplan4eu/unified-planning-sub004/pddl"
	"github.com/aiplan4eu/unified-planning-sub004/simulator"
)

var (
	domainFile  = flag.String("domain", "", "PDDL domain file")
	problemFile = flag.String("problem", "", "PDDL problem file (used with -domain)")
	jsonFile    = flag.String("json", "", "JSON problem file (alternative to -domain/-problem)")
	compile     = flag.Bool("compile", false, "Compile the problem down to the supported feature set")
	supported   = flag.String("supported", "", "Comma-separated feature names the target supports (empty: none)")
	configFile  = flag.String("config", "", "Engine config file (YAML)")
	output      = flag.String("output", "", "Output path prefix; <prefix>-domain.pddl and <prefix>-problem.pddl, or <prefix>.yaml with -yaml")
	asYAML      = flag.Bool("yaml", false, "Write the problem as YAML instead of PDDL")
	planFile    = flag.String("plan", "", "JSON plan file to validate against the problem")
	verbose     = flag.Bool("verbose", false, "Show compilation pass logs")
)

func main() {
	flag.Parse()

	problem, err := loadProblem()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %s: %d fluents, %d actions, %d objects\n",
		problem.Name(), len(problem.Fluents()), len(problem.Actions()), len(problem.Objects()))
	fmt.Printf("Kind: %s\n", problem.Kind())

	if *compile {
		problem, err = compileProblem(problem)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error compiling: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Compiled to %d actions, kind %s\n", len(problem.Actions()), problem.Kind())
	}

	if *planFile != "" {
		if err := validatePlan(problem, *planFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error validating plan: %v\n", err)
			os.Exit(1)
		}
	}

	if *output != "" {
		if err := writeProblem(problem); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
	}
}

func loadProblem() (*model.Problem, error) {
	env := model.NewEnvironment()
	switch {
	case *jsonFile != "":
		data, err := os.ReadFile(*jsonFile)
		if err != nil {
			return nil, err
		}
		return jsonio.ReadProblem(env, data)
	case *domainFile != "" && *problemFile != "":
		return pddl.NewReader(env).ReadFiles(*domainFile, *problemFile)
	default:
		fmt.Fprintln(os.Stderr, "Usage: upc (-domain d.pddl -problem p.pddl | -json p.json) [options]")
		flag.PrintDefaults()
		os.Exit(1)
		return nil, nil
	}
}

func compileProblem(p *model.Problem) (*model.Problem, error) {
	target, err := parseSupported(*supported)
	if err != nil {
		return nil, err
	}
	cfg := engine.DefaultConfig()
	if *configFile != "" {
		cfg, err = engine.LoadConfig(*configFile)
		if err != nil {
			return nil, err
		}
	}
	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}
	res, err := engine.New(cfg, engine.WithLogger(logger)).Compile(p, target)
	if err != nil {
		return nil, err
	}
	return res.Problem, nil
}

// parseSupported reads a comma-separated feature list using the names of
// model.Feature.String.
func parseSupported(list string) (model.Kind, error) {
	kind := model.EmptyKind
	if strings.TrimSpace(list) == "" {
		return kind, nil
	}
	byName := make(map[string]model.Feature)
	for _, f := range model.FullKind.Features() {
		byName[f.String()] = f
	}
	for _, name := range strings.Split(list, ",") {
		f, ok := byName[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return kind, fmt.Errorf("unknown feature %q", name)
		}
		kind = kind.With(f)
	}
	return kind, nil
}

func validatePlan(p *model.Problem, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	steps, err := jsonio.ReadPlan(p, data)
	if err != nil {
		return err
	}
	sim, err := simulator.NewSequentialSimulator(p)
	if err != nil {
		return err
	}
	verdict, err := sim.ValidatePlan(steps)
	if err != nil {
		return err
	}
	if !verdict.Valid {
		fmt.Printf("Plan is invalid: %s\n", verdict.Reason)
		os.Exit(2)
	}
	fmt.Printf("Plan is valid: %d step(s)\n", len(steps.Actions))
	return nil
}

func writeProblem(p *model.Problem) error {
	if *asYAML {
		data, err := jsonio.WriteProblem(p)
		if err != nil {
			return err
		}
		path := *output + ".yaml"
		if err := os.WriteFile(path, data, 0644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	}
	w := pddl.NewWriter(p)
	domain, err := w.Domain()
	if err != nil {
		return err
	}
	problem, err := w.Problem()
	if err != nil {
		return err
	}
	domainPath := *output + "-domain.pddl"
	problemPath := *output + "-problem.pddl"
	if err := os.WriteFile(domainPath, []byte(domain), 0644); err != nil {
		return err
	}
	if err := os.WriteFile(problemPath, []byte(problem), 0644); err != nil {
		return err
	}
	fmt.Printf("Wrote %s and %s\n", domainPath, problemPath)
	return nil
}

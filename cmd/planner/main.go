package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/jengzang/uav-ground-control/internal/client"
	"github.com/jengzang/uav-ground-control/internal/models"
	"github.com/jengzang/uav-ground-control/internal/planner"
	"github.com/jengzang/uav-ground-control/internal/spatial"
)

const usage = `usage: planner [-api URL] [-token T] <command> [flags] [args]

Drawing (points are lat,lng):
  rect     <corner> <corner>        rectangle from two diagonal corners
  circle   <center> <edge>          circle from its center and an edge point
  polyline <p1> <p2> [...]          open path
  polygon  <p1> <p2> <p3> [...]     closed area
    -name NAME   save the shape as a flight plan
    -desc TEXT   plan description

Plans:
  list
  get      <id>
  delete   <id>
  export   [-format json|geojson] [-o FILE] <id>
  import   <file>
`

func main() {
	apiURL := flag.String("api", envOr("UAV_API", "http://localhost:8080"), "API base URL")
	token := flag.String("token", os.Getenv("UAV_TOKEN"), "bearer token for write requests")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	c := client.New(*apiURL, client.WithToken(*token))
	cmd, args := flag.Arg(0), flag.Args()[1:]

	var err error
	switch cmd {
	case "rect", "rectangle":
		err = draw(ctx, c, spatial.KindRectangle, args)
	case "circle":
		err = draw(ctx, c, spatial.KindCircle, args)
	case "polyline":
		err = draw(ctx, c, spatial.KindPolyline, args)
	case "polygon":
		err = draw(ctx, c, spatial.KindPolygon, args)
	case "list":
		err = list(ctx, c)
	case "get":
		err = get(ctx, c, args)
	case "delete":
		err = remove(ctx, c, args)
	case "export":
		err = export(ctx, c, args)
	case "import":
		err = importPlan(ctx, c, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func draw(ctx context.Context, c *client.Client, kind spatial.Kind, args []string) error {
	fs := flag.NewFlagSet(string(kind), flag.ExitOnError)
	name := fs.String("name", "", "save as a flight plan with this name")
	desc := fs.String("desc", "", "plan description")
	_ = fs.Parse(args)

	points := make([]spatial.Waypoint, 0, fs.NArg())
	for _, arg := range fs.Args() {
		p, err := planner.ParsePoint(arg)
		if err != nil {
			return err
		}
		points = append(points, p)
	}

	plan, err := planner.Draw(kind, points)
	if err != nil {
		return err
	}

	if *name == "" {
		d := spatial.Describe(plan.Shape)
		return printJSON(models.ShapeExpandResponse{
			Type:         d.Type,
			Waypoints:    plan.Waypoints(),
			RadiusMeters: d.RadiusMeters,
		})
	}

	id, err := c.CreateFlightPlan(ctx, models.FlightPlanRequest{
		Name:        *name,
		Description: *desc,
		ShapeType:   string(plan.Kind()),
		Waypoints:   plan.Waypoints(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Flight plan saved with id %d (%s, %d waypoints)\n", id, plan.Kind(), len(plan.Waypoints()))
	return nil
}

func list(ctx context.Context, c *client.Client) error {
	plans, err := c.ListFlightPlans(ctx)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Println("No flight plans")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tWAYPOINTS\tCREATED")
	for _, p := range plans {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.ShapeType, len(p.Waypoints), p.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func get(ctx context.Context, c *client.Client, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	plan, err := c.GetFlightPlan(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(plan)
}

func remove(ctx context.Context, c *client.Client, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	if err := c.DeleteFlightPlan(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Flight plan %d deleted\n", id)
	return nil
}

func export(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "json", "json or geojson")
	out := fs.String("o", "", "output file (default derived from the plan name)")
	_ = fs.Parse(args)

	id, err := parseID(fs.Args())
	if err != nil {
		return err
	}

	switch *format {
	case "json":
		plan, err := c.GetFlightPlan(ctx, id)
		if err != nil {
			return err
		}
		path := *out
		if path == "" {
			path = planner.FileName(plan.Name)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := planner.WritePlan(f, plan); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("Exported %q to %s\n", plan.Name, path)
	case "geojson":
		raw, err := c.FlightPlanGeoJSON(ctx, id)
		if err != nil {
			return err
		}
		path := *out
		if path == "" {
			path = "flight-plan-" + strconv.FormatInt(id, 10) + ".geojson"
		}
		if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
			return err
		}
		fmt.Printf("Exported plan %d to %s\n", id, path)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
	return nil
}

func importPlan(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("import needs exactly one file")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	req, err := planner.ReadPlan(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(args[0]), err)
	}
	id, err := c.CreateFlightPlan(ctx, *req)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %q as flight plan %d\n", req.Name, id)
	return nil
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one plan id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid plan id %q", args[0])
	}
	return id, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

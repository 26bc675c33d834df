package utils

import (
    "fmt"
    "github.com/fatih/color"
)

/* one line per chip, the detail is dimmed */
func Result(chip string, ok bool, detail string) string {
    name := color.New(color.FgCyan).SprintFunc()
    faint := color.New(color.Faint).SprintFunc()
    if ok {
        green := color.New(color.FgGreen).SprintFunc()
        return fmt.Sprintf("%-10v %v %v", name(chip), green("passed"), faint(detail))
    }
    red := color.New(color.FgRed).SprintFunc()
    return fmt.Sprintf("%-10v %v %v", name(chip), red("failed"), faint(detail))
}

package descriptor

import (
	"time"

	"specctl/internal/statement"
)

// TimeoutRule fails a method that runs longer than d. It is never applied
// implicitly; a class opts in by declaring it on a field.
func TimeoutRule(d time.Duration) MethodRule {
	return MethodRuleFunc(func(base statement.Statement, _ *Method, _ any) statement.Statement {
		return statement.Timeout(base, d)
	})
}

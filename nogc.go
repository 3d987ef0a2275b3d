package tryalloc

// Box handles are raw addresses outside the GC heap; a moving collector would not know
// to update them.
import _ "go4.org/unsafe/assume-no-moving-gc"
